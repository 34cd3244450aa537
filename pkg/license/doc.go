// Package license finds and reads license files for crates unpacked in the
// cargo registry source cache.
//
// Cargo extracts every downloaded crate into
// $CARGO_HOME/registry/src/<registry>/<name>-<version>. A [Locator] scans
// each <registry> root for the folders of the requested packages and
// attaches the text of every file whose name looks like a license
// (LICENSE-MIT, COPYING, NOTICE.txt, ...).
//
// A missing license is a normal outcome: the package keeps a nil
// LicenseText and no error is returned. Only an unreadable source tree is
// reported, and only when no registry root could be read at all.
package license
