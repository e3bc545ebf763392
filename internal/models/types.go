package models

import (
	"database/sql/driver"
	"strings"
	"time"

	"github.com/google/uuid"
)

// StringArray is stored as a Postgres-style "{a,b,c}" literal, which also works as
// plain text on sqlite.
type StringArray []string

// Scan implements the sql.Scanner interface for reading from database
func (a *StringArray) Scan(value interface{}) error {
	if value == nil {
		*a = nil
		return nil
	}

	str, ok := value.(string)
	if !ok {
		if bytes, ok := value.([]byte); ok {
			str = string(bytes)
		} else {
			*a = nil
			return nil
		}
	}

	str = strings.TrimSuffix(strings.TrimPrefix(str, "{"), "}")
	if str == "" {
		*a = []string{}
		return nil
	}
	*a = strings.Split(str, ",")
	return nil
}

// Value implements the driver.Valuer interface for writing to database
func (a StringArray) Value() (driver.Value, error) {
	if a == nil {
		return nil, nil
	}
	return "{" + strings.Join(a, ",") + "}", nil
}

// Contains reports whether s is one of the elements
func (a StringArray) Contains(s string) bool {
	for _, v := range a {
		if v == s {
			return true
		}
	}
	return false
}

// Timestamp returns the current time as float seconds, the unit of every sort key.
func Timestamp() float64 {
	return float64(time.Now().UnixNano()) / 1e9
}

func generateUUID() string {
	return uuid.New().String()
}
