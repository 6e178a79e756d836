package mongo

import "errors"

var (
	ErrFailedToConnectToMongo = errors.New("mongo connection could not be established")
	ErrHealthcheckFailed      = errors.New("mongo healthcheck failed")
)
