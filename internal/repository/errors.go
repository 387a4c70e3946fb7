// Package repository implements the persistence layer over MySQL. Row
// lookups return sql.ErrNoRows when nothing matches; unique-constraint
// violations are mapped to the matching business error kind so the
// database remains the authoritative safety net for the check-then-act
// races in registration and role assignment.
package repository

import (
	"errors"
	"strings"

	"github.com/go-sql-driver/mysql"
)

// dupKey reports whether err is a MySQL duplicate-entry error (1062)
// raised by an index whose name contains key.
func dupKey(err error, key string) bool {
	var me *mysql.MySQLError
	return errors.As(err, &me) && me.Number == 1062 && strings.Contains(me.Message, key)
}
