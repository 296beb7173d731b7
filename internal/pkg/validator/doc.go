// Package validator validates request structs with go-playground/validator v10
// and reports failures as a snake_case field to message map.
package validator
