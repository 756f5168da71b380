// Package tabular writes export rows into a temporary csv or xlsx file.
//
// A File is created with its header row already written. Append adds one
// batch of rows and is atomic per call: either every row of the batch is
// in the file afterwards or the file is unchanged. The finished bytes are
// read back with Open, and Close removes the temporary file.
package tabular
