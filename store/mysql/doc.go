// Package mysql is a PrincipalStore on MySQL.
//
// Users, employees, roles, and employee permission modules live in four
// tables; see schema.sql. Ids are auto-increment integers rendered as
// decimal strings.
package mysql
