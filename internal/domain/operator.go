package domain

// Operator representa al único usuario autenticable de la consola.
type Operator struct {
	Username string `json:"username"`
}
