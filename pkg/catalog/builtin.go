package catalog

import "github.com/ekaya-inc/datacheck/pkg/models"

// Employee-database domain bounds.
const (
	MinEmployeeNumber = 10001
	MaxEmployeeNumber = 999999
	MinSalary         = 30000
	MaxSalary         = 200000
)

var (
	genderValues      = []string{"M", "F"}
	assignmentColumns = []string{"emp_no", "dept_no", "from_date", "to_date"}
)

// employeeSuites returns the rule sets for the six employee-database tables.
func employeeSuites() []models.RuleSet {
	return []models.RuleSet{
		{
			Table: "employees",
			Rules: []models.Rule{
				models.ColumnListMatch([]string{"emp_no", "birth_date", "first_name", "last_name", "gender", "hire_date"}),
				models.Unique("emp_no"),
				models.NotNull("emp_no"),
				models.NotNull("first_name"),
				models.NotNull("last_name"),
				models.InSet("gender", genderValues),
				models.ValueRange("emp_no", MinEmployeeNumber, MaxEmployeeNumber),
			},
		},
		{
			Table: "salaries",
			Rules: []models.Rule{
				models.ColumnListMatch([]string{"emp_no", "salary", "from_date", "to_date"}),
				models.NotNull("emp_no"),
				models.NotNull("salary"),
				models.ValueRange("salary", MinSalary, MaxSalary),
			},
		},
		{
			Table: "titles",
			Rules: []models.Rule{
				models.ColumnListMatch([]string{"emp_no", "title", "from_date", "to_date"}),
				models.NotNull("emp_no"),
				models.NotNull("title"),
			},
		},
		{
			Table: "departments",
			Rules: []models.Rule{
				models.ColumnListMatch([]string{"dept_no", "dept_name"}),
				models.Unique("dept_no"),
				models.Unique("dept_name"),
				models.NotNull("dept_no"),
				models.NotNull("dept_name"),
			},
		},
		{
			Table: "dept_emp",
			Rules: []models.Rule{
				models.ColumnListMatch(assignmentColumns),
				models.NotNull("emp_no"),
				models.NotNull("dept_no"),
			},
		},
		{
			Table: "dept_manager",
			Rules: []models.Rule{
				models.ColumnListMatch(assignmentColumns),
				models.NotNull("emp_no"),
				models.NotNull("dept_no"),
				models.Unique("emp_no"),
			},
		},
	}
}
