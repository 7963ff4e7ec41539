package workspace

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Store defines the persistence interface for workspace documents.
// Abstracted for testability.
type Store interface {
	// Read returns the parsed document, or (nil, nil) when it does not
	// exist — absence means "not yet created", not an error.
	Read(userID int64, kind Kind) (*Document, error)
	// Write overwrites the whole document, creating the user directory
	// if missing.
	Write(userID int64, kind Kind, doc *Document) error
	// UpdateSection performs a read-modify-write of a single section. A
	// missing document is synthesized with just the given section.
	UpdateSection(userID int64, kind Kind, title, body string, replace bool) error
	Exists(userID int64, kind Kind) bool
	Delete(userID int64, kind Kind) error
	// Archive writes a timestamped immutable snapshot to the history
	// area. Accepts KindAll to snapshot every existing workspace.
	Archive(userID int64, kind Kind) error
	// ListUserIDs returns every user id with any workspace present.
	ListUserIDs() ([]int64, error)
}

// historyDir is the per-user subdirectory holding archived snapshots.
const historyDir = "history"

// FileStore implements Store on the local filesystem: one directory per
// user holding four fixed-name markdown files plus history/.
//
// Concurrent update_section calls against the same document would race
// (lost update), so the read-modify-write cycle holds a per-(user,kind)
// mutex. Writes to distinct documents are independent.
type FileStore struct {
	root string
	log  zerolog.Logger
	now  func() time.Time

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewFileStore creates a filesystem-backed workspace store rooted at dir.
func NewFileStore(dir string, log zerolog.Logger) *FileStore {
	return &FileStore{
		root:  dir,
		log:   log,
		now:   time.Now,
		locks: make(map[string]*sync.Mutex),
	}
}

// UserDir returns the directory holding one user's workspace files.
func (fs *FileStore) UserDir(userID int64) string {
	return filepath.Join(fs.root, strconv.FormatInt(userID, 10))
}

// DocumentPath returns the path of one workspace document.
func (fs *FileStore) DocumentPath(userID int64, kind Kind) string {
	return filepath.Join(fs.UserDir(userID), string(kind)+".md")
}

func (fs *FileStore) lockFor(userID int64, kind Kind) *sync.Mutex {
	key := fmt.Sprintf("%d/%s", userID, kind)
	fs.mu.Lock()
	defer fs.mu.Unlock()
	l, ok := fs.locks[key]
	if !ok {
		l = &sync.Mutex{}
		fs.locks[key] = l
	}
	return l
}

// Read loads and parses a workspace document. Malformed frontmatter is
// logged, never fatal: the document is still usable by section map.
func (fs *FileStore) Read(userID int64, kind Kind) (*Document, error) {
	if !kind.Valid() {
		return nil, fmt.Errorf("workspace: unknown kind %q", kind)
	}
	data, err := os.ReadFile(fs.DocumentPath(userID, kind))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("workspace: read %s for user %d: %w", kind, userID, err)
	}

	doc := Parse(string(data))
	if doc.FrontmatterErr != nil {
		fs.log.Warn().
			Int64("user_id", userID).
			Str("kind", string(kind)).
			Err(doc.FrontmatterErr).
			Msg("malformed frontmatter, continuing with empty metadata")
	}
	return doc, nil
}

// Write renders and overwrites the whole document.
func (fs *FileStore) Write(userID int64, kind Kind, doc *Document) error {
	if !kind.Valid() {
		return fmt.Errorf("workspace: unknown kind %q", kind)
	}
	if err := os.MkdirAll(fs.UserDir(userID), 0o755); err != nil {
		return fmt.Errorf("workspace: create user dir: %w", err)
	}
	path := fs.DocumentPath(userID, kind)
	if err := os.WriteFile(path, []byte(Render(doc)), 0o644); err != nil {
		return fmt.Errorf("workspace: write %s for user %d: %w", kind, userID, err)
	}
	fs.log.Debug().Int64("user_id", userID).Str("kind", string(kind)).Msg("workspace written")
	return nil
}

// UpdateSection performs the read-modify-write protocol for one section:
// parse the current document (or synthesize a minimal one), replace or
// append the section body, refresh last_updated, re-render, write back.
// The cycle holds the per-document lock from read through write.
func (fs *FileStore) UpdateSection(userID int64, kind Kind, title, body string, replace bool) error {
	if !kind.Valid() {
		return fmt.Errorf("workspace: unknown kind %q", kind)
	}
	l := fs.lockFor(userID, kind)
	l.Lock()
	defer l.Unlock()

	doc, err := fs.Read(userID, kind)
	if err != nil {
		return err
	}
	if doc == nil {
		doc = NewDocument(userID, fs.now())
	}
	doc.UpdateSection(title, body, replace)
	doc.Touch(fs.now())
	return fs.Write(userID, kind, doc)
}

// Exists reports whether the workspace document has been created.
func (fs *FileStore) Exists(userID int64, kind Kind) bool {
	_, err := os.Stat(fs.DocumentPath(userID, kind))
	return err == nil
}

// Delete removes a whole workspace document. Deleting a missing document
// is not an error.
func (fs *FileStore) Delete(userID int64, kind Kind) error {
	if !kind.Valid() {
		return fmt.Errorf("workspace: unknown kind %q", kind)
	}
	err := os.Remove(fs.DocumentPath(userID, kind))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("workspace: delete %s for user %d: %w", kind, userID, err)
	}
	return nil
}

// Archive writes a timestamped copy of the workspace(s) to the user's
// history directory. The live document is never mutated. Missing
// workspaces are skipped.
func (fs *FileStore) Archive(userID int64, kind Kind) error {
	kinds := []Kind{kind}
	if kind == KindAll {
		kinds = Kinds()
	} else if !kind.Valid() {
		return fmt.Errorf("workspace: unknown kind %q", kind)
	}

	stamp := fs.now().Format("2006-01-02_150405")
	dir := filepath.Join(fs.UserDir(userID), historyDir)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("workspace: create history dir: %w", err)
	}

	for _, k := range kinds {
		data, err := os.ReadFile(fs.DocumentPath(userID, k))
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return fmt.Errorf("workspace: archive read %s: %w", k, err)
		}
		name := fmt.Sprintf("%s_%s.md", k, stamp)
		if err := os.WriteFile(filepath.Join(dir, name), data, 0o644); err != nil {
			return fmt.Errorf("workspace: archive write %s: %w", k, err)
		}
		fs.log.Info().Int64("user_id", userID).Str("snapshot", name).Msg("workspace archived")
	}
	return nil
}

// ListUserIDs scans the store root for user directories.
func (fs *FileStore) ListUserIDs() ([]int64, error) {
	entries, err := os.ReadDir(fs.root)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("workspace: list users: %w", err)
	}
	var ids []int64
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		id, err := strconv.ParseInt(e.Name(), 10, 64)
		if err != nil {
			continue // skip non-user directories
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// agentWorkspaces maps an agent kind to the workspaces it may read. Every
// agent reads shared plus its own workspace; "all" reads everything.
var agentWorkspaces = map[string][]Kind{
	"goal_tracking": {KindShared, KindGoalTracking},
	"nutrition":     {KindShared, KindNutrition},
	"chat":          {KindShared, KindChat},
	"all":           {KindShared, KindGoalTracking, KindNutrition, KindChat},
}

// ContextForAgent concatenates the raw content of every workspace readable
// by the given agent kind, each prefixed with a workspace banner. Missing
// workspaces are skipped.
func (fs *FileStore) ContextForAgent(userID int64, agent string) (string, error) {
	kinds, ok := agentWorkspaces[agent]
	if !ok {
		return "", fmt.Errorf("workspace: unknown agent kind %q", agent)
	}

	var parts []string
	for _, k := range kinds {
		data, err := os.ReadFile(fs.DocumentPath(userID, k))
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return "", fmt.Errorf("workspace: context read %s: %w", k, err)
		}
		banner := fmt.Sprintf("=== %s WORKSPACE ===\n", strings.ToUpper(string(k)))
		parts = append(parts, banner+string(data))
	}
	return strings.Join(parts, "\n\n"), nil
}
