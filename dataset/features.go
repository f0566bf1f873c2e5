package dataset

import (
	"strings"
	"time"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/bikecast/pkg/errors"
	"github.com/YuminosukeSato/bikecast/pkg/log"
)

// Calendar feature names appended by DeriveTemporalFeatures.
const (
	MonthColumn     = "Month"
	DayOfWeekColumn = "DayOfWeek"
	IsWeekendColumn = "IsWeekend"
)

// RepairColumns restores a corrupted Date header. When no column is named
// exactly "Date", the first column whose name contains "Date" is renamed
// and a ColumnRenameWarning is raised. Otherwise the frame is unchanged.
//
// NOTE: with several headers containing "Date" the first one wins, which
// may be the wrong column.
func RepairColumns(df dataframe.DataFrame) dataframe.DataFrame {
	names := df.Names()
	for _, name := range names {
		if name == DateColumn {
			return df
		}
	}
	for _, name := range names {
		if strings.Contains(name, DateColumn) {
			errors.Warn(errors.NewColumnRenameWarning(name, DateColumn))
			// no column is named Date yet, so the rename cannot collide
			out, err := renameColumns(df, func(n string) string {
				if n == name {
					return DateColumn
				}
				return n
			})
			if err != nil {
				return df
			}
			return out
		}
	}
	return df
}

// DeriveTemporalFeatures parses the Date column with layout and appends
// Month (1-12), DayOfWeek (Monday=0) and IsWeekend (1 on Saturday and
// Sunday). Unit annotations are stripped from every column name afterwards.
func DeriveTemporalFeatures(df dataframe.DataFrame, layout string) (dataframe.DataFrame, error) {
	if !hasColumn(df, DateColumn) {
		return df, errors.NewSchemaError(DateColumn, df.Names())
	}

	dates := df.Col(DateColumn).Records()
	months := make([]int, len(dates))
	weekdays := make([]int, len(dates))
	weekend := make([]int, len(dates))
	for i, v := range dates {
		d, err := time.Parse(layout, strings.TrimSpace(v))
		if err != nil {
			return df, errors.NewParseError(DateColumn, i, v, layout, err)
		}
		months[i] = int(d.Month())
		weekdays[i] = mondayFirst(d.Weekday())
		if weekdays[i] >= 5 {
			weekend[i] = 1
		}
	}

	df = df.Mutate(series.New(months, series.Int, MonthColumn)).
		Mutate(series.New(weekdays, series.Int, DayOfWeekColumn)).
		Mutate(series.New(weekend, series.Int, IsWeekendColumn))
	if df.Err != nil {
		return df, errors.Wrap(df.Err, "append calendar features")
	}
	return renameColumns(df, CleanColumnName)
}

// mondayFirst maps time.Weekday (Sunday=0) to Monday=0..Sunday=6.
func mondayFirst(d time.Weekday) int {
	return (int(d) + 6) % 7
}

// SplitFeaturesTarget separates the target column from the features. The
// target is looked up by exact name first, then by the first column that
// starts with the target's prefix (its name without the last word). The
// target and Date columns are removed from X.
func SplitFeaturesTarget(df dataframe.DataFrame, target string) (dataframe.DataFrame, *mat.VecDense, error) {
	column, err := resolveTarget(df.Names(), target)
	if err != nil {
		return df, nil, err
	}

	s := df.Col(column)
	if t := s.Type(); t != series.Int && t != series.Float {
		return df, nil, errors.NewValidationError(column, "target must be numeric", t)
	}
	y := mat.NewVecDense(s.Len(), s.Float())

	drop := []string{column}
	if hasColumn(df, DateColumn) {
		drop = append(drop, DateColumn)
	}
	X := df.Drop(drop)
	if X.Err != nil {
		return df, nil, errors.Wrap(X.Err, "drop target")
	}
	if X.Ncol() == 0 {
		return df, nil, errors.NewValidationError("features", "no feature columns left", df.Names())
	}
	return X, y, nil
}

func resolveTarget(names []string, target string) (string, error) {
	for _, n := range names {
		if n == target {
			return n, nil
		}
	}
	prefix := targetPrefix(target)
	for _, n := range names {
		if strings.HasPrefix(n, prefix) {
			log.GetLoggerWithName("dataset").Warn("Target column matched by prefix",
				"target", target,
				"column", n,
			)
			return n, nil
		}
	}
	return "", errors.NewTargetNotFoundError(target, prefix)
}

// targetPrefix returns the name up to its last word,
// e.g. "Rented Bike" for "Rented Bike Count".
func targetPrefix(target string) string {
	if i := strings.LastIndex(strings.TrimSpace(target), " "); i > 0 {
		return target[:i]
	}
	return target
}

func hasColumn(df dataframe.DataFrame, name string) bool {
	for _, n := range df.Names() {
		if n == name {
			return true
		}
	}
	return false
}
