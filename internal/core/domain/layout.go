package domain

import "path/filepath"

const (
	// LaneDirName is the name of the internal workspace directory.
	LaneDirName = ".lane"

	// CacheDirName is the name of the cache directory.
	CacheDirName = "cache"

	// PathsDirName is the name of the saved-paths cache directory.
	PathsDirName = "paths"

	// EnvDirName is the name of the environment cache directory.
	EnvDirName = "environments"

	// SourcesDirName is the name of the directory checkouts are cloned into.
	SourcesDirName = "sources"

	// ResultsFileName is the name of the run results store file.
	ResultsFileName = "results.json"

	// LaneFileName is the name of the pipeline configuration file.
	LaneFileName = "lane.yaml"

	// DirPerm is the default permission for directories (rwxr-x---).
	DirPerm = 0o750

	// FilePerm is the default permission for files (rw-r--r--).
	FilePerm = 0o644
)

// DefaultLanePath returns the default root directory for lane metadata.
func DefaultLanePath() string {
	return LaneDirName
}

// DefaultPathsCachePath returns the default path for the saved-paths cache.
// It joins .lane, cache and paths.
func DefaultPathsCachePath() string {
	return filepath.Join(LaneDirName, CacheDirName, PathsDirName)
}

// DefaultEnvCachePath returns the default path for the environment cache.
// It joins .lane, cache and environments.
func DefaultEnvCachePath() string {
	return filepath.Join(LaneDirName, CacheDirName, EnvDirName)
}

// DefaultSourcesPath returns the default path for source checkouts.
func DefaultSourcesPath() string {
	return filepath.Join(LaneDirName, SourcesDirName)
}

// DefaultResultsPath returns the default path for the run results store.
func DefaultResultsPath() string {
	return filepath.Join(LaneDirName, ResultsFileName)
}
