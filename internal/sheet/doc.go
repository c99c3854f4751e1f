// Package sheet provides the in-memory form of one score sheet: rows keyed by
// entity code, columns keyed by trading date, and write-once cells.
//
// Tables are loaded and saved by the exporter package. The engine only
// appends rows and columns and fills empty cells; it never removes anything.
package sheet
