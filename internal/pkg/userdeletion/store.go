//go:generate ${TOOLS_BIN}/mockgen -source ${GOFILE} -destination mock/${GOFILE} -package mock -mock_names "DependentRecordStore=DependentRecordStore"
package userdeletion

import "context"

// DependentRecordStore removes the records of a service that reference the user.
// Deleting records of a user without records is not an error.
type DependentRecordStore interface {
	DeleteByUser(ctx context.Context, userID int64) error
}
