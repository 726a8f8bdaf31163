package admin

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/chameleon-db/colops/internal/config"
	"github.com/chameleon-db/colops/internal/journal"
	"github.com/chameleon-db/colops/internal/state"
)

// DirName is the administrative directory created by 'colops init'
const DirName = ".colops"

// Directory manages the .colops/ directory structure
type Directory struct {
	rootDir string // .colops/
}

// NewDirectory creates a new directory manager
func NewDirectory(workDir string) *Directory {
	return &Directory{
		rootDir: filepath.Join(workDir, DirName),
	}
}

// Initialize creates the .colops/ directory structure
func (d *Directory) Initialize() error {
	if err := os.MkdirAll(d.rootDir, 0755); err != nil {
		return fmt.Errorf("failed to create %s directory: %w", DirName, err)
	}

	subdirs := []string{
		"state",
		"state/coercions",
		"journal",
	}

	for _, subdir := range subdirs {
		path := filepath.Join(d.rootDir, subdir)
		if err := os.MkdirAll(path, 0755); err != nil {
			return fmt.Errorf("failed to create %s: %w", subdir, err)
		}
	}

	return d.createGitignore()
}

// Exists reports whether the directory has been initialized
func (d *Directory) Exists() bool {
	info, err := os.Stat(d.rootDir)
	return err == nil && info.IsDir()
}

// createGitignore creates .colops/.gitignore
func (d *Directory) createGitignore() error {
	gitignorePath := filepath.Join(d.rootDir, ".gitignore")
	gitignoreContent := `# colops administrative files
# Local to each developer
state/
journal/
`

	return os.WriteFile(gitignorePath, []byte(gitignoreContent), 0644)
}

// GetPaths returns all directory paths
func (d *Directory) GetPaths() DirectoryPaths {
	return DirectoryPaths{
		Root:      d.rootDir,
		Config:    filepath.Join(filepath.Dir(d.rootDir), config.FileName),
		State:     filepath.Join(d.rootDir, "state"),
		Coercions: filepath.Join(d.rootDir, "state", "coercions"),
		Journal:   filepath.Join(d.rootDir, "journal"),
	}
}

// DirectoryPaths holds all important paths
type DirectoryPaths struct {
	Root      string
	Config    string
	State     string
	Coercions string
	Journal   string
}

// ManagerFactory creates and initializes all managers
type ManagerFactory struct {
	workDir string
	dir     *Directory
}

// NewManagerFactory creates a new manager factory
func NewManagerFactory(workDir string) *ManagerFactory {
	return &ManagerFactory{
		workDir: workDir,
		dir:     NewDirectory(workDir),
	}
}

// Initialize initializes the entire .colops/ structure
func (mf *ManagerFactory) Initialize() error {
	return mf.dir.Initialize()
}

// Paths returns the directory layout
func (mf *ManagerFactory) Paths() DirectoryPaths {
	return mf.dir.GetPaths()
}

// CreateConfigLoader creates a config loader
func (mf *ManagerFactory) CreateConfigLoader() *config.Loader {
	return config.NewLoader(mf.workDir)
}

// CreateJournalLogger creates a journal logger
func (mf *ManagerFactory) CreateJournalLogger() (*journal.Logger, error) {
	return journal.NewLogger(mf.dir.GetPaths().Journal)
}

// CreateStateTracker creates a state tracker
func (mf *ManagerFactory) CreateStateTracker() (*state.Tracker, error) {
	return state.NewTracker(mf.dir.GetPaths().State)
}

// Status returns the current directory structure status
func (mf *ManagerFactory) Status() (string, error) {
	paths := mf.dir.GetPaths()

	if !mf.dir.Exists() {
		return "not_initialized", nil
	}

	status := "initialized\n"
	status += fmt.Sprintf("  Config: %s\n", paths.Config)
	status += fmt.Sprintf("  State: %s\n", paths.State)
	status += fmt.Sprintf("  Journal: %s\n", paths.Journal)

	if _, err := os.Stat(paths.Config); err == nil {
		status += "  Config loaded: yes\n"
	} else {
		status += "  Config loaded: no\n"
	}

	tracker, err := mf.CreateStateTracker()
	if err != nil {
		return "", err
	}
	coercions, err := tracker.Coercions()
	if err != nil {
		return "", err
	}
	status += fmt.Sprintf("  Coerced columns: %d\n", len(coercions))

	return status, nil
}
