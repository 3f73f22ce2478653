// Package common holds build information and logger setup shared by the binaries.
package common
