// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package transport

// Daemon methods on a transaction object.
const (
	MethodSearchName         = "SearchName"
	MethodSearchDetails      = "SearchDetails"
	MethodSearchGroup        = "SearchGroup"
	MethodSearchFile         = "SearchFile"
	MethodGetDepends         = "GetDepends"
	MethodGetRequires        = "GetRequires"
	MethodGetDetails         = "GetDetails"
	MethodGetFiles           = "GetFiles"
	MethodGetPackages        = "GetPackages"
	MethodGetUpdates         = "GetUpdates"
	MethodGetUpdateDetail    = "GetUpdateDetail"
	MethodGetRepoList        = "GetRepoList"
	MethodGetOldTransactions = "GetOldTransactions"
	MethodResolve            = "Resolve"
	MethodWhatProvides       = "WhatProvides"
	MethodRollback           = "Rollback"
	MethodInstallPackages    = "InstallPackages"
	MethodInstallFiles       = "InstallFiles"
	MethodInstallSignature   = "InstallSignature"
	MethodRemovePackages     = "RemovePackages"
	MethodUpdatePackages     = "UpdatePackages"
	MethodUpdateSystem       = "UpdateSystem"
	MethodRefreshCache       = "RefreshCache"
	MethodAcceptEula         = "AcceptEula"
	MethodRepoEnable         = "RepoEnable"
	MethodRepoSetData        = "RepoSetData"

	MethodCancel         = "Cancel"
	MethodGetStatus      = "GetStatus"
	MethodGetProgress    = "GetProgress"
	MethodGetRole        = "GetRole"
	MethodGetPackage     = "GetPackage"
	MethodGetAllowCancel = "GetAllowCancel"
	MethodIsCallerActive = "IsCallerActive"
)

// Signal names published on a transaction's topic.
const (
	SignalPackage               = "Package"
	SignalStatusChanged         = "StatusChanged"
	SignalProgressChanged       = "ProgressChanged"
	SignalFinished              = "Finished"
	SignalErrorCode             = "ErrorCode"
	SignalRequireRestart        = "RequireRestart"
	SignalMessage               = "Message"
	SignalDetails               = "Details"
	SignalFiles                 = "Files"
	SignalUpdateDetail          = "UpdateDetail"
	SignalRepoDetail            = "RepoDetail"
	SignalRepoSignatureRequired = "RepoSignatureRequired"
	SignalEulaRequired          = "EulaRequired"
	SignalAllowCancel           = "AllowCancel"
	SignalCallerActiveChanged   = "CallerActiveChanged"
	SignalTransaction           = "Transaction"
)
