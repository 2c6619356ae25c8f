// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package dummy

import (
	"fmt"
	"path/filepath"
	"slices"
	"strings"

	"github.com/ManuGH/pkclient/internal/pk/enum"
	"github.com/ManuGH/pkclient/internal/pk/event"
	"github.com/ManuGH/pkclient/internal/pk/packageid"
	"github.com/ManuGH/pkclient/internal/transport"
)

var methodRoles = map[string]enum.Role{
	transport.MethodSearchName:         enum.RoleSearchName,
	transport.MethodSearchDetails:      enum.RoleSearchDetails,
	transport.MethodSearchGroup:        enum.RoleSearchGroup,
	transport.MethodSearchFile:         enum.RoleSearchFile,
	transport.MethodGetDepends:         enum.RoleGetDepends,
	transport.MethodGetRequires:        enum.RoleGetRequires,
	transport.MethodGetDetails:         enum.RoleGetDetails,
	transport.MethodGetFiles:           enum.RoleGetFiles,
	transport.MethodGetPackages:        enum.RoleGetPackages,
	transport.MethodGetUpdates:         enum.RoleGetUpdates,
	transport.MethodGetUpdateDetail:    enum.RoleGetUpdateDetail,
	transport.MethodGetRepoList:        enum.RoleGetRepoList,
	transport.MethodGetOldTransactions: enum.RoleGetOldTransactions,
	transport.MethodResolve:            enum.RoleResolve,
	transport.MethodWhatProvides:       enum.RoleWhatProvides,
	transport.MethodRollback:           enum.RoleRollback,
	transport.MethodInstallPackages:    enum.RoleInstallPackages,
	transport.MethodInstallFiles:       enum.RoleInstallFiles,
	transport.MethodInstallSignature:   enum.RoleInstallSignature,
	transport.MethodRemovePackages:     enum.RoleRemovePackages,
	transport.MethodUpdatePackages:     enum.RoleUpdatePackages,
	transport.MethodUpdateSystem:       enum.RoleUpdateSystem,
	transport.MethodRefreshCache:       enum.RoleRefreshCache,
	transport.MethodAcceptEula:         enum.RoleAcceptEula,
	transport.MethodRepoEnable:         enum.RoleRepoEnable,
	transport.MethodRepoSetData:        enum.RoleRepoSetData,
}

// Policy action names, as reported in refusals.
const (
	actionInstall          = "org.freedesktop.packagekit.package-install"
	actionInstallUntrusted = "org.freedesktop.packagekit.package-install-untrusted"
	actionRemove           = "org.freedesktop.packagekit.package-remove"
	actionUpdate           = "org.freedesktop.packagekit.system-update"
	actionRefresh          = "org.freedesktop.packagekit.system-sources-refresh"
	actionConfigure        = "org.freedesktop.packagekit.system-sources-configure"
	actionTrustKey         = "org.freedesktop.packagekit.system-trust-signing-key"
	actionEula             = "org.freedesktop.packagekit.package-eula-accept"
)

type request struct {
	tid  transport.TransactionID
	role enum.Role
	args []any
}

// plan is what a transaction will publish and how it ends. commit applies
// the state change of a successful run, under the daemon lock.
type plan struct {
	subject string
	action  string
	events  []event.Event
	exit    enum.Exit
	commit  func()
}

func (p *plan) add(evs ...event.Event) { p.events = append(p.events, evs...) }

func (p *plan) fail(code enum.ErrorCode, exit enum.Exit, format string, args ...any) {
	p.add(event.ErrorCode{Code: code, Details: fmt.Sprintf(format, args...)})
	p.exit = exit
	p.commit = nil
}

func invalidInput(format string, args ...any) error {
	return transport.NewRemoteError(transport.ErrNameInputInvalid, format, args...)
}

type argReader struct {
	args []any
	err  error
}

func (r *argReader) at(i int) any {
	if r.err != nil {
		return nil
	}
	if i >= len(r.args) {
		r.err = invalidInput("missing argument %d", i)
		return nil
	}
	return r.args[i]
}

func (r *argReader) str(i int) string {
	v := r.at(i)
	s, ok := v.(string)
	if !ok && r.err == nil {
		r.err = invalidInput("argument %d is %T, want string", i, v)
	}
	return s
}

func (r *argReader) boolean(i int) bool {
	v := r.at(i)
	b, ok := v.(bool)
	if !ok && r.err == nil {
		r.err = invalidInput("argument %d is %T, want bool", i, v)
	}
	return b
}

func (r *argReader) strs(i int) []string {
	v := r.at(i)
	s, ok := v.([]string)
	if !ok && r.err == nil {
		r.err = invalidInput("argument %d is %T, want string list", i, v)
	}
	return s
}

func (r *argReader) count(i int) uint32 {
	v := r.at(i)
	n, ok := event.AsUint64(v)
	if !ok && r.err == nil {
		r.err = invalidInput("argument %d is %T, want unsigned", i, v)
	}
	return uint32(n)
}

func (r *argReader) filter(i int) enum.Filter {
	f := enum.ParseFilter(r.str(i))
	if f.Has(enum.FilterUnknown) && r.err == nil {
		r.err = invalidInput("filter %q is invalid", r.args[i])
	}
	return f
}

func (r *argReader) ids(i int) []string {
	ids := r.strs(i)
	if r.err == nil {
		if err := packageid.CheckAll(ids); err != nil {
			r.err = invalidInput("%s", err)
		}
	}
	return ids
}

func (r *argReader) id(i int) string {
	id := r.str(i)
	if r.err == nil && !packageid.Check(id) {
		r.err = invalidInput("package id %q is invalid", id)
	}
	return id
}

// planLocked validates the arguments of req and scripts its events.
func (d *Daemon) planLocked(req request) (plan, error) {
	r := &argReader{args: req.args}
	p := plan{exit: enum.ExitSuccess}

	switch req.role {
	case enum.RoleSearchName, enum.RoleSearchDetails, enum.RoleSearchGroup, enum.RoleSearchFile, enum.RoleResolve:
		f, term := r.filter(0), r.str(1)
		p.subject = term
		p.add(event.StatusChanged{Status: enum.StatusQuery})
		match := map[enum.Role]func(Package, string) bool{
			enum.RoleSearchName:    searchName,
			enum.RoleSearchDetails: searchDetails,
			enum.RoleSearchGroup:   searchGroup,
			enum.RoleSearchFile:    searchFile,
			enum.RoleResolve:       func(p Package, term string) bool { return p.Name == term },
		}[req.role]
		for _, pkg := range d.catalog {
			if matches(pkg, f) && match(pkg, term) {
				p.add(event.Package{Info: info(pkg), ID: pkg.ID(), Summary: pkg.Summary})
			}
		}

	case enum.RoleWhatProvides:
		f, _, term := r.filter(0), r.str(1), r.str(2)
		p.subject = term
		p.add(event.StatusChanged{Status: enum.StatusQuery})
		for _, pkg := range d.catalog {
			if matches(pkg, f) && searchFile(pkg, term) {
				p.add(event.Package{Info: info(pkg), ID: pkg.ID(), Summary: pkg.Summary})
			}
		}

	case enum.RoleGetPackages:
		f := r.filter(0)
		p.add(event.StatusChanged{Status: enum.StatusQuery})
		for _, pkg := range d.catalog {
			if matches(pkg, f) {
				p.add(event.Package{Info: info(pkg), ID: pkg.ID(), Summary: pkg.Summary})
			}
		}

	case enum.RoleGetUpdates:
		r.filter(0)
		p.add(event.StatusChanged{Status: enum.StatusQuery})
		for _, pkg := range d.catalog {
			if pkg.Installed && pkg.Update != "" {
				p.add(event.Package{Info: pkg.UpdateInfo, ID: pkg.UpdateID(), Summary: pkg.Summary})
			}
		}

	case enum.RoleGetDepends, enum.RoleGetRequires:
		f, id := r.filter(0), r.id(1)
		r.boolean(2)
		p.subject = id
		p.add(event.StatusChanged{Status: enum.StatusQuery})
		i, ok := find(d.catalog, id)
		if !ok {
			p.fail(enum.ErrorPackageNotFound, enum.ExitFailed, "package %s not found", id)
			break
		}
		target := d.catalog[i]
		for _, pkg := range d.catalog {
			related := slices.Contains(target.Depends, pkg.Name)
			if req.role == enum.RoleGetRequires {
				related = slices.Contains(pkg.Depends, target.Name)
			}
			if related && matches(pkg, f) {
				p.add(event.Package{Info: info(pkg), ID: pkg.ID(), Summary: pkg.Summary})
			}
		}

	case enum.RoleGetDetails, enum.RoleGetFiles, enum.RoleGetUpdateDetail:
		id := r.id(0)
		p.subject = id
		p.add(event.StatusChanged{Status: enum.StatusInfo})
		i, ok := find(d.catalog, id)
		if !ok {
			p.fail(enum.ErrorPackageNotFound, enum.ExitFailed, "package %s not found", id)
			break
		}
		pkg := d.catalog[i]
		switch req.role {
		case enum.RoleGetDetails:
			p.add(event.Details{ID: id, License: pkg.License, Group: pkg.Group, Description: pkg.Description, URL: pkg.URL, Size: pkg.Size})
		case enum.RoleGetFiles:
			p.add(event.Files{ID: id, Files: slices.Clone(pkg.Files)})
		default:
			p.add(event.UpdateDetail{
				ID: id, Updates: pkg.ID(), VendorURL: pkg.URL,
				Restart: pkg.Restart, Text: fmt.Sprintf("Update %s to %s", pkg.Name, pkg.Update),
			})
		}

	case enum.RoleGetRepoList:
		r.filter(0)
		p.add(event.StatusChanged{Status: enum.StatusInfo})
		for _, repo := range d.repos {
			p.add(event.RepoDetail{ID: repo.ID, Description: repo.Description, Enabled: repo.Enabled})
		}

	case enum.RoleGetOldTransactions:
		n := int(r.count(0))
		p.add(event.StatusChanged{Status: enum.StatusInfo})
		past := d.history
		if n > 0 && n < len(past) {
			past = past[len(past)-n:]
		}
		for _, tx := range past {
			p.add(tx)
		}

	case enum.RoleRollback:
		prior := r.str(0)
		p.subject = prior
		p.action = actionUpdate
		p.add(event.StatusChanged{Status: enum.StatusRollback})
		if !slices.ContainsFunc(d.history, func(tx event.Transaction) bool { return tx.TID == prior }) {
			p.fail(enum.ErrorTransactionError, enum.ExitFailed, "transaction %s is not in the journal", prior)
		}

	case enum.RoleInstallPackages, enum.RoleUpdatePackages, enum.RoleRemovePackages:
		ids := r.ids(0)
		if req.role == enum.RoleRemovePackages {
			r.boolean(1)
			r.boolean(2)
		}
		p.subject = packageid.JoinList(ids)
		d.planChange(&p, req.role, ids)

	case enum.RoleUpdateSystem:
		p.action = actionUpdate
		var ids []string
		for _, pkg := range d.catalog {
			if pkg.Installed && pkg.Update != "" {
				ids = append(ids, pkg.UpdateID())
			}
		}
		if len(ids) == 0 {
			p.fail(enum.ErrorNoPackagesToUpdate, enum.ExitFailed, "the system is up to date")
			break
		}
		d.planChange(&p, enum.RoleUpdatePackages, ids)

	case enum.RoleInstallFiles:
		trusted, files := r.boolean(0), r.strs(1)
		if r.err == nil && len(files) == 0 {
			r.err = invalidInput("no files given")
		}
		p.subject = packageid.JoinList(files)
		p.action = actionInstall
		if !trusted {
			p.action = actionInstallUntrusted
		}
		p.add(event.StatusChanged{Status: enum.StatusInstall})
		for _, f := range files {
			name := strings.TrimSuffix(filepath.Base(f), filepath.Ext(f))
			id := packageid.ID{Name: name, Version: "0", Arch: "noarch", Data: "local"}.String()
			p.add(event.Package{Info: enum.InfoInstalling, ID: id, Summary: f})
		}

	case enum.RoleInstallSignature:
		sig, key, id := r.str(0), r.str(1), r.id(2)
		p.subject = key
		p.action = actionTrustKey
		p.add(event.StatusChanged{Status: enum.StatusSigCheck})
		if enum.ParseSigType(sig) == enum.SigTypeUnknown {
			p.fail(enum.ErrorNotSupported, enum.ExitFailed, "signature type %q is not supported", sig)
			break
		}
		p.add(event.Message{Kind: enum.MessageNotice, Details: fmt.Sprintf("key %s trusted for %s", key, id)})
		p.commit = func() { d.trusted[key] = true }

	case enum.RoleAcceptEula:
		eula := r.str(0)
		p.subject = eula
		p.action = actionEula
		p.add(event.StatusChanged{Status: enum.StatusSetup})
		p.commit = func() { d.accepted[eula] = true }

	case enum.RoleRefreshCache:
		r.boolean(0)
		p.action = actionRefresh
		p.add(event.StatusChanged{Status: enum.StatusRefreshCache})
		for _, repo := range d.repos {
			if repo.Enabled {
				p.add(event.StatusChanged{Status: enum.StatusDownloadRepository})
			}
		}

	case enum.RoleRepoEnable:
		repoID, enabled := r.str(0), r.boolean(1)
		p.subject = repoID
		p.action = actionConfigure
		p.add(event.StatusChanged{Status: enum.StatusSetup})
		i := d.repoIndex(repoID)
		if i < 0 {
			p.fail(enum.ErrorRepoNotFound, enum.ExitFailed, "repo %s not found", repoID)
			break
		}
		p.commit = func() { d.repos[i].Enabled = enabled }

	case enum.RoleRepoSetData:
		repoID, key, value := r.str(0), r.str(1), r.str(2)
		p.subject = repoID
		p.action = actionConfigure
		p.add(event.StatusChanged{Status: enum.StatusSetup})
		i := d.repoIndex(repoID)
		if i < 0 {
			p.fail(enum.ErrorRepoNotFound, enum.ExitFailed, "repo %s not found", repoID)
			break
		}
		p.commit = func() {
			if d.repos[i].Data == nil {
				d.repos[i].Data = make(map[string]string)
			}
			d.repos[i].Data[key] = value
		}

	default:
		return plan{}, invalidInput("role %s is not supported", req.role)
	}

	if r.err != nil {
		return plan{}, r.err
	}
	return p, nil
}

func (d *Daemon) repoIndex(id string) int {
	return slices.IndexFunc(d.repos, func(r Repo) bool { return r.ID == id })
}

// planChange scripts an install, update or removal of ids.
func (d *Daemon) planChange(p *plan, role enum.Role, ids []string) {
	p.action = map[enum.Role]string{
		enum.RoleInstallPackages: actionInstall,
		enum.RoleUpdatePackages:  actionUpdate,
		enum.RoleRemovePackages:  actionRemove,
	}[role]

	var targets []int
	for _, id := range ids {
		i, ok := find(d.catalog, id)
		if !ok {
			p.fail(enum.ErrorPackageNotFound, enum.ExitFailed, "package %s not found", id)
			return
		}
		pkg := d.catalog[i]
		switch {
		case role == enum.RoleInstallPackages && pkg.Installed:
			p.fail(enum.ErrorPackageAlreadyInstalled, enum.ExitFailed, "%s is already installed", pkg.Name)
			return
		case role != enum.RoleInstallPackages && !pkg.Installed:
			p.fail(enum.ErrorPackageNotInstalled, enum.ExitFailed, "%s is not installed", pkg.Name)
			return
		case role == enum.RoleUpdatePackages && pkg.Update == "":
			p.fail(enum.ErrorNoPackagesToUpdate, enum.ExitFailed, "%s is up to date", pkg.Name)
			return
		}
		if role == enum.RoleInstallPackages {
			if pkg.EulaID != "" && !d.accepted[pkg.EulaID] {
				p.add(event.EulaRequired{EulaID: pkg.EulaID, PackageID: id, Vendor: pkg.Repo, Agreement: "Use of these fonts is subject to the vendor agreement."})
				p.fail(enum.ErrorNoLicenseAgreement, enum.ExitEulaRequired, "license %s must be accepted", pkg.EulaID)
				return
			}
			if repo := d.repoIndex(pkg.Repo); repo >= 0 && d.repos[repo].KeyID != "" && !d.trusted[d.repos[repo].KeyID] {
				key := d.repos[repo].KeyID
				p.add(event.RepoSignatureRequired{
					ID: id, RepoName: pkg.Repo, KeyURL: "https://example.org/keys/" + key + ".asc",
					KeyUserID: "Third Party Signing Key", KeyID: key,
					Fingerprint: strings.Repeat(key, 5), Timestamp: "2024-01-01", SigType: enum.SigTypeGPG,
				})
				p.fail(enum.ErrorGPGFailure, enum.ExitKeyRequired, "key %s is not trusted", key)
				return
			}
		}
		targets = append(targets, i)
	}

	worst := enum.RestartNone
	switch role {
	case enum.RoleRemovePackages:
		p.add(event.StatusChanged{Status: enum.StatusRemove})
		for _, i := range targets {
			pkg := d.catalog[i]
			p.add(event.Package{Info: enum.InfoRemoving, ID: pkg.ID(), Summary: pkg.Summary})
		}
	default:
		p.add(event.StatusChanged{Status: enum.StatusDownload})
		for _, i := range targets {
			pkg := d.catalog[i]
			p.add(event.Package{Info: enum.InfoDownloading, ID: changeID(pkg, role), Summary: pkg.Summary})
		}
		p.add(event.StatusChanged{Status: enum.StatusInstall})
		info := enum.InfoInstalling
		if role == enum.RoleUpdatePackages {
			info = enum.InfoUpdating
		}
		for _, i := range targets {
			pkg := d.catalog[i]
			p.add(event.Package{Info: info, ID: changeID(pkg, role), Summary: pkg.Summary})
			worst = max(worst, pkg.Restart)
		}
	}
	if worst > enum.RestartNone {
		p.add(event.RequireRestart{Restart: worst, Details: "changed packages need a restart"})
	}
	p.add(event.StatusChanged{Status: enum.StatusCleanup})

	p.commit = func() {
		for _, i := range targets {
			pkg := &d.catalog[i]
			switch role {
			case enum.RoleRemovePackages:
				pkg.Installed = false
			case enum.RoleUpdatePackages:
				pkg.Version, pkg.Update = pkg.Update, ""
			default:
				pkg.Installed = true
			}
		}
	}
}

func changeID(pkg Package, role enum.Role) string {
	if role == enum.RoleUpdatePackages {
		return pkg.UpdateID()
	}
	return pkg.ID()
}
