package restx

import "errors"

var (
	ErrServerClosed = errors.New("restx: server closed")
	ErrInvalidJSON  = errors.New("restx: request body is not valid JSON")
	ErrFinalized    = errors.New("restx: pending request already finalized")
	ErrBodyTooLarge = errors.New("restx: request body exceeds the configured limit")

	errCollectionNotFound = errors.New("restx: collection not found")
	errItemNotFound       = errors.New("restx: item not found")
)

// Fixed payloads of the wire protocol.
const (
	msgCollectionNotFound = "Recurso no encontrado"
	msgItemNotFound       = "Elemento no encontrado"
	msgInvalidJSON        = "JSON inválido o error al guardar"
	msgNotAllowed         = "Método o ruta no permitidos"
	msgStaticNotFound     = "404 Not Found"
	msgInternal           = "Internal Server Error"
)
