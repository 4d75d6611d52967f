package build

import (
	stderrors "errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/roach88/osiris/internal/ast"
)

// Project file names, looked up with every extension in ast.Extensions.
const (
	HeaderBaseName  = "story_header"
	ObjectsBaseName = "objects"
	GoalsDir        = "goals"
)

// Project is a decoded story project.
type Project struct {
	Dir     string
	Header  *ast.Header
	Goals   []*ast.Goal
	Objects *ast.ObjectTable
}

// LoadProject reads the header, the goal documents under goals/ and the
// optional game-object table of dir. Goals are sorted by name. Decoding
// problems of all goals are reported together.
func LoadProject(dir string) (*Project, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("project directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("not a directory: %s", dir)
	}

	p := &Project{Dir: dir, Goals: []*ast.Goal{}}

	headerPath, err := findDocument(dir, HeaderBaseName)
	if err != nil {
		return nil, err
	}
	if headerPath == "" {
		return nil, fmt.Errorf("no %s document found in %s", HeaderBaseName, dir)
	}
	if p.Header, err = ast.ReadFile(headerPath, ast.DecodeHeader); err != nil {
		return nil, err
	}

	objectsPath, err := findDocument(dir, ObjectsBaseName)
	if err != nil {
		return nil, err
	}
	if objectsPath != "" {
		if p.Objects, err = ast.ReadFile(objectsPath, ast.DecodeObjects); err != nil {
			return nil, err
		}
	}

	goalFiles, err := findGoalFiles(filepath.Join(dir, GoalsDir))
	if err != nil {
		return nil, err
	}

	var errs []error
	for _, path := range goalFiles {
		g, err := ast.ReadFile(path, ast.DecodeGoal)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		p.Goals = append(p.Goals, g)
	}
	if err := stderrors.Join(errs...); err != nil {
		return nil, err
	}

	sort.SliceStable(p.Goals, func(i, j int) bool {
		return p.Goals[i].Name < p.Goals[j].Name
	})
	return p, nil
}

// findDocument returns the first dir/base.<ext> that exists, or "".
func findDocument(dir, base string) (string, error) {
	for _, ext := range ast.Extensions {
		path := filepath.Join(dir, base+ext)
		_, err := os.Stat(path)
		if err == nil {
			return path, nil
		}
		if !stderrors.Is(err, os.ErrNotExist) {
			return "", fmt.Errorf("stat %s: %w", path, err)
		}
	}
	return "", nil
}

// findGoalFiles lists the goal documents below dir in lexical order. A
// missing goals directory yields no goals.
func findGoalFiles(dir string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			if path == dir && stderrors.Is(err, os.ErrNotExist) {
				return filepath.SkipDir
			}
			return err
		}
		if !d.IsDir() && ast.IsDocument(path) && !strings.HasPrefix(d.Name(), ".") {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan %s: %w", dir, err)
	}
	return files, nil
}
