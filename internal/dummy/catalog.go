// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package dummy

import (
	"slices"
	"strings"

	"github.com/ManuGH/pkclient/internal/pk/enum"
	"github.com/ManuGH/pkclient/internal/pk/packageid"
)

// Package is one entry of the dummy catalog.
type Package struct {
	Name        string
	Version     string
	Arch        string
	Repo        string
	Summary     string
	Description string
	License     string
	URL         string
	Group       enum.Group
	Size        uint64
	Files       []string
	Depends     []string
	Installed   bool

	// Update is the newer version offered, if any.
	Update     string
	UpdateInfo enum.Info
	Restart    enum.Restart

	// EulaID must be accepted before the package installs.
	EulaID string
}

// ID is the package id as the daemon reports it. Installed packages carry
// the "installed" data section.
func (p Package) ID() string {
	data := p.Repo
	if p.Installed {
		data = "installed"
	}
	return packageid.ID{Name: p.Name, Version: p.Version, Arch: p.Arch, Data: data}.String()
}

// UpdateID is the id of the offered update.
func (p Package) UpdateID() string {
	return packageid.ID{Name: p.Name, Version: p.Update, Arch: p.Arch, Data: p.Repo}.String()
}

// Repo is one configured software source.
type Repo struct {
	ID          string
	Description string
	Enabled     bool
	// KeyID is the signing key that must be trusted before installing from it.
	KeyID string
	Data  map[string]string
}

func defaultCatalog() []Package {
	return []Package{
		{
			Name: "bash", Version: "5.2.21", Arch: "x86_64", Repo: "fedora",
			Summary: "The GNU Bourne Again shell", License: "GPL-3.0-or-later",
			Description: "The GNU Bourne Again shell (Bash) is a shell or command language interpreter.",
			URL:         "https://www.gnu.org/software/bash", Group: enum.GroupSystem, Size: 1843200,
			Files: []string{"/usr/bin/bash", "/usr/bin/sh"}, Depends: []string{"glibc"},
			Installed: true, Update: "5.2.26", UpdateInfo: enum.InfoBugfix, Restart: enum.RestartNone,
		},
		{
			Name: "glibc", Version: "2.39", Arch: "x86_64", Repo: "fedora",
			Summary: "The GNU libc libraries", License: "LGPL-2.1-or-later",
			Description: "The glibc package contains standard libraries used by multiple programs.",
			URL:         "https://www.gnu.org/software/glibc", Group: enum.GroupSystem, Size: 6553600,
			Files: []string{"/usr/lib64/libc.so.6"}, Installed: true,
		},
		{
			Name: "kernel", Version: "6.8.9", Arch: "x86_64", Repo: "updates",
			Summary: "The Linux kernel", License: "GPL-2.0-only",
			Description: "The kernel meta package.",
			URL:         "https://www.kernel.org", Group: enum.GroupSystem, Size: 524288,
			Files: []string{"/boot/vmlinuz-6.8.9"}, Installed: true,
			Update: "6.9.1", UpdateInfo: enum.InfoSecurity, Restart: enum.RestartSystem,
		},
		{
			Name: "powertop", Version: "2.15", Arch: "x86_64", Repo: "fedora",
			Summary: "Power consumption monitor", License: "GPL-2.0-only",
			Description: "PowerTOP is a tool that finds the software component(s) that make your computer use more power than necessary.",
			URL:         "https://github.com/fenrus75/powertop", Group: enum.GroupPowerManagement, Size: 327680,
			Files: []string{"/usr/sbin/powertop"}, Depends: []string{"glibc"},
		},
		{
			Name: "vim-enhanced", Version: "9.1.083", Arch: "x86_64", Repo: "fedora",
			Summary: "A version of the VIM editor which includes recent enhancements", License: "Vim",
			Description: "VIM (VIsual editor iMproved) is an updated and improved version of the vi editor.",
			URL:         "https://www.vim.org", Group: enum.GroupProgramming, Size: 4194304,
			Files: []string{"/usr/bin/vim"}, Depends: []string{"glibc"},
		},
		{
			Name: "gnome-shell", Version: "46.1", Arch: "x86_64", Repo: "updates",
			Summary: "Window management and application launching for GNOME", License: "GPL-2.0-or-later",
			Description: "GNOME Shell provides core user interface functions for the GNOME desktop.",
			URL:         "https://wiki.gnome.org/Projects/GnomeShell", Group: enum.GroupDesktopGnome, Size: 13631488,
			Files: []string{"/usr/bin/gnome-shell"}, Depends: []string{"glibc"}, Restart: enum.RestartSession,
		},
		{
			Name: "msttcore-fonts", Version: "2.6", Arch: "noarch", Repo: "vendor",
			Summary: "TrueType core fonts", License: "Proprietary",
			Description: "Core fonts for the web.",
			URL:         "https://corefonts.sourceforge.net", Group: enum.GroupFonts, Size: 2097152,
			Files: []string{"/usr/share/fonts/msttcore/arial.ttf"}, EulaID: "eula-msttcore",
		},
		{
			Name: "flash-tool", Version: "1.0", Arch: "x86_64", Repo: "thirdparty",
			Summary: "Firmware flashing utility", License: "MIT",
			Description: "Flashes firmware images onto supported devices.",
			URL:         "https://example.org/flash-tool", Group: enum.GroupSystem, Size: 65536,
			Files: []string{"/usr/bin/flash-tool"}, Restart: enum.RestartApplication,
		},
	}
}

func defaultRepos() []Repo {
	return []Repo{
		{ID: "fedora", Description: "Fedora 40 - x86_64", Enabled: true},
		{ID: "updates", Description: "Fedora 40 - x86_64 - Updates", Enabled: true},
		{ID: "vendor", Description: "Vendor extras", Enabled: true},
		{ID: "thirdparty", Description: "Third party tools", Enabled: true, KeyID: "BEEFCAFE"},
		{ID: "fedora-debuginfo", Description: "Fedora 40 - x86_64 - Debug", Enabled: false},
	}
}

// matches applies the installed/~installed bits of f; other bits pass.
func matches(p Package, f enum.Filter) bool {
	if f.Has(enum.FilterInstalled) && !p.Installed {
		return false
	}
	if f.Has(enum.FilterNotInstalled) && p.Installed {
		return false
	}
	return true
}

func info(p Package) enum.Info {
	if p.Installed {
		return enum.InfoInstalled
	}
	return enum.InfoAvailable
}

// find resolves a package id against the catalog by name, version and arch.
func find(catalog []Package, raw string) (int, bool) {
	id, err := packageid.Parse(raw)
	if err != nil {
		return -1, false
	}
	i := slices.IndexFunc(catalog, func(p Package) bool {
		return p.Name == id.Name && (p.Version == id.Version || p.Update == id.Version) && p.Arch == id.Arch
	})
	return i, i >= 0
}

func searchName(p Package, term string) bool {
	return strings.Contains(p.Name, term)
}

func searchDetails(p Package, term string) bool {
	term = strings.ToLower(term)
	return searchName(p, term) ||
		strings.Contains(strings.ToLower(p.Summary), term) ||
		strings.Contains(strings.ToLower(p.Description), term)
}

func searchFile(p Package, term string) bool {
	return slices.ContainsFunc(p.Files, func(f string) bool {
		if strings.HasPrefix(term, "/") {
			return f == term
		}
		return strings.HasSuffix(f, "/"+term)
	})
}

func searchGroup(p Package, term string) bool {
	return p.Group.String() == term
}
