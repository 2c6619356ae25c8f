// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package enum

// ErrorCode is the kind carried by an error-code event.
type ErrorCode int

const (
	ErrorUnknown ErrorCode = iota
	ErrorOOM
	ErrorNoNetwork
	ErrorNotSupported
	ErrorInternalError
	ErrorGPGFailure
	ErrorPackageIDInvalid
	ErrorPackageNotInstalled
	ErrorPackageNotFound
	ErrorPackageAlreadyInstalled
	ErrorPackageDownloadFailed
	ErrorGroupNotFound
	ErrorDepResolutionFailed
	ErrorFilterInvalid
	ErrorCreateThreadFailed
	ErrorTransactionError
	ErrorTransactionCancelled
	ErrorNoCache
	ErrorRepoNotFound
	ErrorCannotRemoveSystemPackage
	ErrorProcessKill
	ErrorFailedInitialization
	ErrorFailedFinalise
	ErrorFailedConfigParsing
	ErrorCannotCancel
	ErrorCannotGetLock
	ErrorNoPackagesToUpdate
	ErrorCannotWriteRepoConfig
	ErrorLocalInstallFailed
	ErrorBadGPGSignature
	ErrorMissingGPGSignature
	ErrorRepoConfigurationError
	ErrorNoLicenseAgreement
	ErrorFileConflicts
	ErrorRepoNotAvailable
	ErrorInvalidPackageFile
	ErrorPackageInstallBlocked
	ErrorPackageCorrupt
)

var errorCodeTable = newTable("error-code", ErrorUnknown, []entry[ErrorCode]{
	{ErrorUnknown, "unknown"},
	{ErrorOOM, "out-of-memory"},
	{ErrorNoNetwork, "no-network"},
	{ErrorNotSupported, "not-supported"},
	{ErrorInternalError, "internal-error"},
	{ErrorGPGFailure, "gpg-failure"},
	{ErrorPackageIDInvalid, "package-id-invalid"},
	{ErrorPackageNotInstalled, "package-not-installed"},
	{ErrorPackageNotFound, "package-not-found"},
	{ErrorPackageAlreadyInstalled, "package-already-installed"},
	{ErrorPackageDownloadFailed, "package-download-failed"},
	{ErrorGroupNotFound, "group-not-found"},
	{ErrorDepResolutionFailed, "dep-resolution-failed"},
	{ErrorFilterInvalid, "filter-invalid"},
	{ErrorCreateThreadFailed, "create-thread-failed"},
	{ErrorTransactionError, "transaction-error"},
	{ErrorTransactionCancelled, "transaction-cancelled"},
	{ErrorNoCache, "no-cache"},
	{ErrorRepoNotFound, "repo-not-found"},
	{ErrorCannotRemoveSystemPackage, "cannot-remove-system-package"},
	{ErrorProcessKill, "process-kill"},
	{ErrorFailedInitialization, "failed-initialization"},
	{ErrorFailedFinalise, "failed-finalise"},
	{ErrorFailedConfigParsing, "failed-config-parsing"},
	{ErrorCannotCancel, "cannot-cancel"},
	{ErrorCannotGetLock, "cannot-get-lock"},
	{ErrorNoPackagesToUpdate, "no-packages-to-update"},
	{ErrorCannotWriteRepoConfig, "cannot-write-repo-config"},
	{ErrorLocalInstallFailed, "local-install-failed"},
	{ErrorBadGPGSignature, "bad-gpg-signature"},
	{ErrorMissingGPGSignature, "missing-gpg-signature"},
	{ErrorRepoConfigurationError, "repo-configuration-error"},
	{ErrorNoLicenseAgreement, "no-license-agreement"},
	{ErrorFileConflicts, "file-conflicts"},
	{ErrorRepoNotAvailable, "repo-not-available"},
	{ErrorInvalidPackageFile, "invalid-package-file"},
	{ErrorPackageInstallBlocked, "package-install-blocked"},
	{ErrorPackageCorrupt, "package-corrupt"},
})

func (e ErrorCode) String() string { return errorCodeTable.toText(e) }

func ParseErrorCode(s string) ErrorCode { return errorCodeTable.fromText(s) }

// Message is the kind carried by a message event.
type Message int

const (
	MessageUnknown Message = iota
	MessageNotice
	MessageWarning
	MessageDaemon
	MessageBrokenMirror
	MessageConnectionRefused
	MessageUntrustedPackage
	MessageNewerPackageExists
	MessageCouldNotFindPackage
	MessageConfigFilesChanged
	MessagePackageAlreadyInstalled
)

var messageTable = newTable("message", MessageUnknown, []entry[Message]{
	{MessageUnknown, "unknown"},
	{MessageNotice, "notice"},
	{MessageWarning, "warning"},
	{MessageDaemon, "daemon"},
	{MessageBrokenMirror, "broken-mirror"},
	{MessageConnectionRefused, "connection-refused"},
	{MessageUntrustedPackage, "untrusted-package"},
	{MessageNewerPackageExists, "newer-package-exists"},
	{MessageCouldNotFindPackage, "could-not-find-package"},
	{MessageConfigFilesChanged, "config-files-changed"},
	{MessagePackageAlreadyInstalled, "package-already-installed"},
})

func (m Message) String() string { return messageTable.toText(m) }

func ParseMessage(s string) Message { return messageTable.fromText(s) }

// Group is the package category reported by details events.
type Group int

const (
	GroupUnknown Group = iota
	GroupAccessibility
	GroupAccessories
	GroupAdminTools
	GroupCommunication
	GroupDesktopGnome
	GroupDesktopKDE
	GroupDesktopOther
	GroupDesktopXfce
	GroupDocumentation
	GroupEducation
	GroupElectronics
	GroupFonts
	GroupGames
	GroupGraphics
	GroupInternet
	GroupLegacy
	GroupLocalization
	GroupMaps
	GroupMultimedia
	GroupNetwork
	GroupOffice
	GroupOther
	GroupPowerManagement
	GroupProgramming
	GroupPublishing
	GroupRepos
	GroupScience
	GroupSecurity
	GroupServers
	GroupSystem
	GroupVirtualization
)

var groupTable = newTable("group", GroupUnknown, []entry[Group]{
	{GroupUnknown, "unknown"},
	{GroupAccessibility, "accessibility"},
	{GroupAccessories, "accessories"},
	{GroupAdminTools, "admin-tools"},
	{GroupCommunication, "communication"},
	{GroupDesktopGnome, "desktop-gnome"},
	{GroupDesktopKDE, "desktop-kde"},
	{GroupDesktopOther, "desktop-other"},
	{GroupDesktopXfce, "desktop-xfce"},
	{GroupDocumentation, "documentation"},
	{GroupEducation, "education"},
	{GroupElectronics, "electronics"},
	{GroupFonts, "fonts"},
	{GroupGames, "games"},
	{GroupGraphics, "graphics"},
	{GroupInternet, "internet"},
	{GroupLegacy, "legacy"},
	{GroupLocalization, "localization"},
	{GroupMaps, "maps"},
	{GroupMultimedia, "multimedia"},
	{GroupNetwork, "network"},
	{GroupOffice, "office"},
	{GroupOther, "other"},
	{GroupPowerManagement, "power-management"},
	{GroupProgramming, "programming"},
	{GroupPublishing, "publishing"},
	{GroupRepos, "repos"},
	{GroupScience, "science"},
	{GroupSecurity, "security"},
	{GroupServers, "servers"},
	{GroupSystem, "system"},
	{GroupVirtualization, "virtualization"},
})

func (g Group) String() string { return groupTable.toText(g) }

func ParseGroup(s string) Group { return groupTable.fromText(s) }

// Provides selects what kind of capability a what-provides query matches.
type Provides int

const (
	ProvidesUnknown Provides = iota
	ProvidesAny
	ProvidesModalias
	ProvidesCodec
	ProvidesMimetype
	ProvidesFont
	ProvidesHardwareDriver
)

var providesTable = newTable("provides", ProvidesUnknown, []entry[Provides]{
	{ProvidesUnknown, "unknown"},
	{ProvidesAny, "any"},
	{ProvidesModalias, "modalias"},
	{ProvidesCodec, "codec"},
	{ProvidesMimetype, "mimetype"},
	{ProvidesFont, "font"},
	{ProvidesHardwareDriver, "driver"},
})

func (p Provides) String() string { return providesTable.toText(p) }

func ParseProvides(s string) Provides { return providesTable.fromText(s) }

// SigType is the signature scheme of a repository key.
type SigType int

const (
	SigTypeUnknown SigType = iota
	SigTypeGPG
)

var sigTypeTable = newTable("sig-type", SigTypeUnknown, []entry[SigType]{
	{SigTypeUnknown, "unknown"},
	{SigTypeGPG, "gpg"},
})

func (s SigType) String() string { return sigTypeTable.toText(s) }

func ParseSigType(s string) SigType { return sigTypeTable.fromText(s) }
