package tablesource

import (
	"database/sql/driver"
	"fmt"
	"math/big"
	"strconv"
	"time"

	"github.com/ekaya-inc/datacheck/pkg/models"
)

// CellFromValue converts a value scanned from a database driver into a cell.
// SQL NULL becomes a null cell; dates without a time component render as YYYY-MM-DD
// to match CSV extracts.
func CellFromValue(v any) models.Cell {
	switch val := v.(type) {
	case nil:
		return models.NullCell()
	case string:
		return models.Value(val)
	case []byte:
		return models.Value(string(val))
	case int64:
		return models.Value(strconv.FormatInt(val, 10))
	case int32:
		return models.Value(strconv.FormatInt(int64(val), 10))
	case int16:
		return models.Value(strconv.FormatInt(int64(val), 10))
	case int8:
		return models.Value(strconv.FormatInt(int64(val), 10))
	case int:
		return models.Value(strconv.Itoa(val))
	case uint8:
		return models.Value(strconv.FormatUint(uint64(val), 10))
	case float64:
		return models.Value(strconv.FormatFloat(val, 'f', -1, 64))
	case float32:
		return models.Value(strconv.FormatFloat(float64(val), 'f', -1, 32))
	case bool:
		return models.Value(strconv.FormatBool(val))
	case time.Time:
		if val.Hour() == 0 && val.Minute() == 0 && val.Second() == 0 && val.Nanosecond() == 0 {
			return models.Value(val.Format(time.DateOnly))
		}
		return models.Value(val.Format(time.RFC3339Nano))
	case *big.Rat:
		return models.Value(val.FloatString(10))
	case driver.Valuer:
		inner, err := val.Value()
		if err != nil {
			return models.Value(fmt.Sprint(val))
		}
		if _, again := inner.(driver.Valuer); again {
			return models.Value(fmt.Sprint(inner))
		}
		return CellFromValue(inner)
	case fmt.Stringer:
		return models.Value(val.String())
	default:
		return models.Value(fmt.Sprint(val))
	}
}
