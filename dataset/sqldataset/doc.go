/*
Package sqldataset reads the samples to predict values for from
the result set of an SQL query.

Every column of the result set is taken as a feature named after
it, and every row as a sample. NULL values are undefined. SQLite3
database files and PostgreSQL databases are supported.
*/
package sqldataset
