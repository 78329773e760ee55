package utils

import "github.com/go-playground/validator/v10"

// Validate is the shared validator for handler-level input structs.
var Validate = validator.New()
