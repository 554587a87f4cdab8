// Package dbops implements the database operation steps: applying a SQL
// batch, dropping a list of tables, and inspecting the schema.
//
// Every write step runs inside a single transaction on the run's session and
// commits only after all of its statements succeed. Inspection is read-only
// and reports missing tables as absences instead of failing.
package dbops
