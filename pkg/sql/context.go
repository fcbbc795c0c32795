package sql

type contextKey int

const (
	dbConnectionContextKey contextKey = iota
	dbTransactionContextKey
)

type txData struct {
	ClientTx
	db *database
}
