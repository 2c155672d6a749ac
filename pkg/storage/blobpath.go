package storage

import (
	"fmt"
	"path"
	"time"
)

// Blob folder names. These mirror the layout the mobile and web clients
// already read from, so they must not change.
const (
	FolderRequirements  = "StudentRequirementsFiles"
	FolderAdviserList   = "SSGADVISERSubmitlist"
	FolderTreasurerList = "PTCATREASURERSubmitlist"
	FolderDeanList      = "DEANSubmitlist"
	FolderReceipts      = "StudentReceipts"
)

// RequirementFilePath namespaces a requirement upload by student, approver
// and filename, with a millisecond timestamp prefix to avoid collisions:
// StudentRequirementsFiles/{studentUID}/{approverUID}/{filename}/{ts}_{filename}.
func RequirementFilePath(studentUID, approverUID, filename string, ts time.Time) string {
	return path.Join(FolderRequirements, studentUID, approverUID, filename, stamp(filename, ts))
}

// SubmitListPath builds the per-role receipt path:
// {folder}/{studentUID}/{approverUID}/{ts}_{filename}.
func SubmitListPath(folder, studentUID, approverUID, filename string, ts time.Time) string {
	return path.Join(folder, studentUID, approverUID, stamp(filename, ts))
}

// ReceiptPath builds the shared receipts path: StudentReceipts/{ts}_{filename}.
func ReceiptPath(filename string, ts time.Time) string {
	return path.Join(FolderReceipts, stamp(filename, ts))
}

func stamp(filename string, ts time.Time) string {
	return fmt.Sprintf("%d_%s", ts.UnixMilli(), filename)
}
