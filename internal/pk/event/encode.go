// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package event

import (
	"strings"
	"time"

	"github.com/ManuGH/pkclient/internal/bus"
)

// Encode renders ev as the signal the daemon would publish for it.
func Encode(ev Event) bus.Signal {
	return bus.Signal{Name: ev.Name(), Body: body(ev)}
}

func millis(d time.Duration) uint32 {
	return uint32(d / time.Millisecond)
}

func body(ev Event) []any {
	switch e := ev.(type) {
	case Package:
		return []any{e.Info.String(), e.ID, e.Summary}
	case StatusChanged:
		return []any{e.Status.String()}
	case ProgressChanged:
		return []any{e.Percentage, e.Subpercentage, e.Elapsed, e.Remaining}
	case Finished:
		return []any{e.Exit.String(), millis(e.Runtime)}
	case ErrorCode:
		return []any{e.Code.String(), e.Details}
	case RequireRestart:
		return []any{e.Restart.String(), e.Details}
	case Message:
		return []any{e.Kind.String(), e.Details}
	case Details:
		return []any{e.ID, e.License, e.Group.String(), e.Description, e.URL, e.Size}
	case Files:
		return []any{e.ID, strings.Join(e.Files, fileSeparator)}
	case UpdateDetail:
		return []any{e.ID, e.Updates, e.Obsoletes, e.VendorURL, e.BugURL, e.CVEURL, e.Restart.String(), e.Text}
	case RepoDetail:
		return []any{e.ID, e.Description, e.Enabled}
	case RepoSignatureRequired:
		return []any{e.ID, e.RepoName, e.KeyURL, e.KeyUserID, e.KeyID, e.Fingerprint, e.Timestamp, e.SigType.String()}
	case EulaRequired:
		return []any{e.EulaID, e.PackageID, e.Vendor, e.Agreement}
	case AllowCancel:
		return []any{e.Allowed}
	case CallerActiveChanged:
		return []any{e.Active}
	case Transaction:
		return []any{e.TID, e.Timestamp, e.Succeeded, e.Role.String(), millis(e.Duration), e.Data}
	}
	return nil
}
