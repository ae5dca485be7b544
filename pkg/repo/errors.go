package repo

import (
	"fmt"

	"github.com/crucible-pm/crucible/pkg/name"
)

// NoSuchPackageError reports that a qualified name has no IDs in this
// repository, one of the named error variants spec.md §7 lists
// (NoSuchPackage).
type NoSuchPackageError struct {
	QPN name.QualifiedPackageName
}

func (e *NoSuchPackageError) Error() string {
	return fmt.Sprintf("repo: no such package %s", e.QPN)
}

// NoSuchVersionError reports that a qualified name exists but not at the
// given version (spec.md §7's NoSuchVersion).
type NoSuchVersionError struct {
	QPN     name.QualifiedPackageName
	Version name.VersionSpec
}

func (e *NoSuchVersionError) Error() string {
	return fmt.Sprintf("repo: %s has no version %s", e.QPN, e.Version)
}

// RepositoryConfigurationError reports a malformed repository (an
// unreadable or inconsistent profiles/ tree), spec.md §7's
// RepositoryConfigurationError.
type RepositoryConfigurationError struct {
	Repository name.RepositoryName
	Reason     string
}

func (e *RepositoryConfigurationError) Error() string {
	return fmt.Sprintf("repo: repository %s misconfigured: %s", e.Repository, e.Reason)
}
