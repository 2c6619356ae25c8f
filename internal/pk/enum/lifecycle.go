// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package enum

// Status is the current phase of an active transaction.
type Status int

const (
	StatusUnknown Status = iota
	StatusWait
	StatusSetup
	StatusRunning
	StatusQuery
	StatusInfo
	StatusRemove
	StatusRefreshCache
	StatusDownload
	StatusInstall
	StatusUpdate
	StatusCleanup
	StatusObsolete
	StatusDepResolve
	StatusSigCheck
	StatusRollback
	StatusTestCommit
	StatusCommit
	StatusRequest
	StatusFinished
	StatusCancel
	StatusDownloadRepository
	StatusDownloadPackagelist
	StatusDownloadFilelist
	StatusDownloadChangelog
	StatusDownloadGroup
	StatusDownloadUpdateinfo
	StatusRepackaging
	StatusLoadingCache
	StatusScanApplications
	StatusGeneratePackageList
)

var statusTable = newTable("status", StatusUnknown, []entry[Status]{
	{StatusUnknown, "unknown"},
	{StatusWait, "wait"},
	{StatusSetup, "setup"},
	{StatusRunning, "running"},
	{StatusQuery, "query"},
	{StatusInfo, "info"},
	{StatusRemove, "remove"},
	{StatusRefreshCache, "refresh-cache"},
	{StatusDownload, "download"},
	{StatusInstall, "install"},
	{StatusUpdate, "update"},
	{StatusCleanup, "cleanup"},
	{StatusObsolete, "obsolete"},
	{StatusDepResolve, "dep-resolve"},
	{StatusSigCheck, "sig-check"},
	{StatusRollback, "rollback"},
	{StatusTestCommit, "test-commit"},
	{StatusCommit, "commit"},
	{StatusRequest, "request"},
	{StatusFinished, "finished"},
	{StatusCancel, "cancel"},
	{StatusDownloadRepository, "download-repository"},
	{StatusDownloadPackagelist, "download-packagelist"},
	{StatusDownloadFilelist, "download-filelist"},
	{StatusDownloadChangelog, "download-changelog"},
	{StatusDownloadGroup, "download-group"},
	{StatusDownloadUpdateinfo, "download-updateinfo"},
	{StatusRepackaging, "repackaging"},
	{StatusLoadingCache, "loading-cache"},
	{StatusScanApplications, "scan-applications"},
	{StatusGeneratePackageList, "generate-package-list"},
})

func (s Status) String() string { return statusTable.toText(s) }

func ParseStatus(s string) Status { return statusTable.fromText(s) }

// Exit is how a transaction ended.
type Exit int

const (
	ExitUnknown Exit = iota
	ExitSuccess
	ExitFailed
	ExitCancelled
	ExitKeyRequired
	ExitEulaRequired
	ExitKilled
)

var exitTable = newTable("exit", ExitUnknown, []entry[Exit]{
	{ExitUnknown, "unknown"},
	{ExitSuccess, "success"},
	{ExitFailed, "failed"},
	{ExitCancelled, "cancelled"},
	{ExitKeyRequired, "key-required"},
	{ExitEulaRequired, "eula-required"},
	{ExitKilled, "killed"},
})

func (e Exit) String() string { return exitTable.toText(e) }

func ParseExit(s string) Exit { return exitTable.fromText(s) }

// Restart is the scope of restart a transaction requires. Values are ordered
// so the worst observed restart is the maximum.
type Restart int

const (
	RestartUnknown Restart = iota
	RestartNone
	RestartApplication
	RestartSession
	RestartSystem
)

var restartTable = newTable("restart", RestartUnknown, []entry[Restart]{
	{RestartUnknown, "unknown"},
	{RestartNone, "none"},
	{RestartApplication, "application"},
	{RestartSession, "session"},
	{RestartSystem, "system"},
})

func (r Restart) String() string { return restartTable.toText(r) }

func ParseRestart(s string) Restart { return restartTable.fromText(s) }

// MaxRestart returns the more invasive of a and b.
func MaxRestart(a, b Restart) Restart {
	if b > a {
		return b
	}
	return a
}

// Info classifies a package record.
type Info int

const (
	InfoUnknown Info = iota
	InfoInstalled
	InfoAvailable
	InfoLow
	InfoEnhancement
	InfoNormal
	InfoBugfix
	InfoImportant
	InfoSecurity
	InfoBlocked
	InfoDownloading
	InfoUpdating
	InfoInstalling
	InfoRemoving
	InfoCleanup
	InfoObsoleting
	InfoCollectionInstalled
	InfoCollectionAvailable
)

var infoTable = newTable("info", InfoUnknown, []entry[Info]{
	{InfoUnknown, "unknown"},
	{InfoInstalled, "installed"},
	{InfoAvailable, "available"},
	{InfoLow, "low"},
	{InfoEnhancement, "enhancement"},
	{InfoNormal, "normal"},
	{InfoBugfix, "bugfix"},
	{InfoImportant, "important"},
	{InfoSecurity, "security"},
	{InfoBlocked, "blocked"},
	{InfoDownloading, "downloading"},
	{InfoUpdating, "updating"},
	{InfoInstalling, "installing"},
	{InfoRemoving, "removing"},
	{InfoCleanup, "cleanup"},
	{InfoObsoleting, "obsoleting"},
	{InfoCollectionInstalled, "collection-installed"},
	{InfoCollectionAvailable, "collection-available"},
})

func (i Info) String() string { return infoTable.toText(i) }

func ParseInfo(s string) Info { return infoTable.fromText(s) }
