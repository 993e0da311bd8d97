package versions

import (
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"notarium/internal/note"

	git "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"golang.org/x/crypto/blake2b"
)

// Archive preserves pruned snapshots in a per-document git repository.
// History is allowed to decay in the live document but never in the archive:
// every blob removed by the retention schedule is committed here first, with
// its blake2b-256 digest recorded so bit rot is detectable later.
type Archive struct {
	baseDir string
	lockMu  sync.Mutex
	locks   map[string]*sync.Mutex
}

// NewArchive creates an archive rooted at baseDir. Repositories are created
// lazily, one directory per document id.
func NewArchive(baseDir string) *Archive {
	return &Archive{
		baseDir: baseDir,
		locks:   make(map[string]*sync.Mutex),
	}
}

func (a *Archive) documentLock(documentID string) *sync.Mutex {
	a.lockMu.Lock()
	defer a.lockMu.Unlock()
	lock, ok := a.locks[documentID]
	if !ok {
		lock = &sync.Mutex{}
		a.locks[documentID] = lock
	}
	return lock
}

func (a *Archive) repoPath(documentID string) string {
	return filepath.Join(a.baseDir, documentID)
}

// Store commits the named snapshots of the document to its archive
// repository. The snapshots must still be present in doc.Versions; callers
// archive first and delete after.
func (a *Archive) Store(doc *note.Document, timestamps []int64, author string) error {
	if len(timestamps) == 0 {
		return nil
	}
	lock := a.documentLock(doc.ID)
	lock.Lock()
	defer lock.Unlock()

	repo, worktree, err := a.ensureRepo(doc.ID)
	if err != nil {
		return err
	}

	sorted := append([]int64(nil), timestamps...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	var digests []string
	path := a.repoPath(doc.ID)
	for _, ts := range sorted {
		blob, ok := doc.Versions[ts]
		if !ok {
			return fmt.Errorf("archive %s: snapshot %d not present", doc.ID, ts)
		}
		name := note.VersionName(ts) + ".json"
		if err := os.WriteFile(filepath.Join(path, name), append(json.RawMessage(nil), blob...), 0o644); err != nil {
			return fmt.Errorf("write snapshot %s: %w", name, err)
		}
		if _, err := worktree.Add(name); err != nil {
			return fmt.Errorf("git add %s: %w", name, err)
		}
		sum := blake2b.Sum256(blob)
		digests = append(digests, fmt.Sprintf("%s blake2b:%s", note.VersionName(ts), hex.EncodeToString(sum[:])))
	}

	message := fmt.Sprintf("Archive %d pruned snapshots\n\n%s\n", len(sorted), strings.Join(digests, "\n"))
	if _, err := worktree.Commit(message, &git.CommitOptions{
		Author: &object.Signature{
			Name:  author,
			Email: fmt.Sprintf("%s@local.notarium.dev", sanitizeEmail(author)),
			When:  time.Now(),
		},
	}); err != nil {
		return fmt.Errorf("commit snapshots: %w", err)
	}
	_ = repo
	return nil
}

// Snapshot returns an archived blob by its creation timestamp, reading the
// file from the archive worktree.
func (a *Archive) Snapshot(documentID string, ts int64) (json.RawMessage, error) {
	lock := a.documentLock(documentID)
	lock.Lock()
	defer lock.Unlock()

	name := note.VersionName(ts) + ".json"
	blob, err := os.ReadFile(filepath.Join(a.repoPath(documentID), name))
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("archived snapshot %s/%s: %w", documentID, name, note.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("read archived snapshot %s: %w", name, err)
	}
	return blob, nil
}

func (a *Archive) ensureRepo(documentID string) (*git.Repository, *git.Worktree, error) {
	path := a.repoPath(documentID)
	if _, err := os.Stat(path); err == nil {
		repo, err := git.PlainOpen(path)
		if err != nil {
			return nil, nil, fmt.Errorf("open repo: %w", err)
		}
		worktree, err := repo.Worktree()
		if err != nil {
			return nil, nil, fmt.Errorf("open worktree: %w", err)
		}
		return repo, worktree, nil
	} else if !errors.Is(err, os.ErrNotExist) {
		return nil, nil, fmt.Errorf("stat repo path: %w", err)
	}

	if err := os.MkdirAll(path, 0o755); err != nil {
		return nil, nil, fmt.Errorf("create repo dir: %w", err)
	}
	repo, err := git.PlainInit(path, false)
	if err != nil {
		return nil, nil, fmt.Errorf("init repo: %w", err)
	}
	if err := repo.Storer.SetReference(plumbing.NewSymbolicReference(plumbing.HEAD, plumbing.NewBranchReferenceName("main"))); err != nil {
		return nil, nil, fmt.Errorf("set HEAD to main: %w", err)
	}
	worktree, err := repo.Worktree()
	if err != nil {
		return nil, nil, fmt.Errorf("open worktree: %w", err)
	}
	return repo, worktree, nil
}

func sanitizeEmail(author string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(author) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '.' || r == '-' {
			b.WriteRune(r)
		}
	}
	if b.Len() == 0 {
		return "anonymous"
	}
	return b.String()
}
