package repository

import "errors"

var errMissingID = errors.New("entity has no id")
