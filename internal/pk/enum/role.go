// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package enum

// Role is the fixed operation kind of a transaction.
type Role int

const (
	RoleUnknown Role = iota
	RoleSearchName
	RoleSearchDetails
	RoleSearchGroup
	RoleSearchFile
	RoleGetDepends
	RoleGetRequires
	RoleGetDetails
	RoleGetFiles
	RoleGetPackages
	RoleGetUpdates
	RoleGetUpdateDetail
	RoleGetRepoList
	RoleGetOldTransactions
	RoleResolve
	RoleWhatProvides
	RoleRollback
	RoleInstallPackages
	RoleInstallFiles
	RoleInstallSignature
	RoleRemovePackages
	RoleUpdatePackages
	RoleUpdateSystem
	RoleRefreshCache
	RoleAcceptEula
	RoleRepoEnable
	RoleRepoSetData
	RoleCancel
)

var roleTable = newTable("role", RoleUnknown, []entry[Role]{
	{RoleUnknown, "unknown"},
	{RoleSearchName, "search-name"},
	{RoleSearchDetails, "search-details"},
	{RoleSearchGroup, "search-group"},
	{RoleSearchFile, "search-file"},
	{RoleGetDepends, "get-depends"},
	{RoleGetRequires, "get-requires"},
	{RoleGetDetails, "get-details"},
	{RoleGetFiles, "get-files"},
	{RoleGetPackages, "get-packages"},
	{RoleGetUpdates, "get-updates"},
	{RoleGetUpdateDetail, "get-update-detail"},
	{RoleGetRepoList, "get-repo-list"},
	{RoleGetOldTransactions, "get-old-transactions"},
	{RoleResolve, "resolve"},
	{RoleWhatProvides, "what-provides"},
	{RoleRollback, "rollback"},
	{RoleInstallPackages, "install-packages"},
	{RoleInstallFiles, "install-files"},
	{RoleInstallSignature, "install-signature"},
	{RoleRemovePackages, "remove-packages"},
	{RoleUpdatePackages, "update-packages"},
	{RoleUpdateSystem, "update-system"},
	{RoleRefreshCache, "refresh-cache"},
	{RoleAcceptEula, "accept-eula"},
	{RoleRepoEnable, "repo-enable"},
	{RoleRepoSetData, "repo-set-data"},
	{RoleCancel, "cancel"},
})

func (r Role) String() string { return roleTable.toText(r) }

// ParseRole decodes a wire token; unrecognised tokens yield RoleUnknown.
func ParseRole(s string) Role { return roleTable.fromText(s) }

// Roles lists every role in table order, RoleUnknown first.
func Roles() []Role { return roleTable.values() }

// Mutating reports whether the role changes system state and therefore goes
// through privilege escalation when the daemon refuses it by policy.
func (r Role) Mutating() bool {
	switch r {
	case RoleInstallPackages, RoleInstallFiles, RoleInstallSignature,
		RoleRemovePackages, RoleUpdatePackages, RoleUpdateSystem,
		RoleRefreshCache, RoleAcceptEula, RoleRepoEnable, RoleRepoSetData:
		return true
	}
	return false
}
