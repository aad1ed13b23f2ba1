package version

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"time"
)

// Git is the sole built-in VersionProvider, implemented by invoking the git
// executable in the context path (spec §4.7: "git, implemented by invoking
// the git executable... in the context path").
type Git struct {
	// MaxDepth bounds how many commits ListRefs walks when the caller
	// doesn't specify a limit.
	MaxDepth int
}

// NewGit builds a Git provider with the given default walk depth.
func NewGit(maxDepth int) *Git {
	if maxDepth <= 0 {
		maxDepth = 500
	}
	return &Git{MaxDepth: maxDepth}
}

func (g *Git) Name() string { return "git" }

func (g *Git) run(ctx context.Context, dir string, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = dir
	var out, errBuf bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &errBuf
	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("version/git: git %s: %w: %s", strings.Join(args, " "), err, errBuf.String())
	}
	return out.String(), nil
}

// Detect runs `git rev-parse --git-dir` (spec §4.7: "Detection is a git
// rev-parse --git-dir").
func (g *Git) Detect(ctx context.Context, path string) bool {
	_, err := g.run(ctx, path, "rev-parse", "--git-dir")
	return err == nil
}

func (g *Git) GetCurrentRef(ctx context.Context, path string) (Ref, error) {
	out, err := g.run(ctx, path, "rev-parse", "HEAD")
	if err != nil {
		return Ref{}, err
	}
	return g.GetRef(ctx, path, strings.TrimSpace(out))
}

// logFormat fields: hash, parent hashes (space separated), unix timestamp, subject.
const logFormat = "%H%x1f%P%x1f%at%x1f%s"

func (g *Git) GetRef(ctx context.Context, path, id string) (Ref, error) {
	out, err := g.run(ctx, path, "log", "-1", "--format="+logFormat, id)
	if err != nil {
		return Ref{}, err
	}
	refs := parseLogLines(out)
	if len(refs) == 0 {
		return Ref{}, fmt.Errorf("version/git: ref %s not found", id)
	}
	return refs[0], nil
}

// ListRefs walks HEAD (or opts.Branch) for up to opts.Limit (or g.MaxDepth)
// commits (spec §4.7: "Listing walks HEAD (or a configured branch) for up
// to a maxDepth commits").
func (g *Git) ListRefs(ctx context.Context, path string, opts ListRefsOpts) ([]Ref, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = g.MaxDepth
	}
	branch := opts.Branch
	if branch == "" {
		branch = "HEAD"
	}
	args := []string{"log", branch, "--format=" + logFormat, "-n", strconv.Itoa(limit)}
	out, err := g.run(ctx, path, args...)
	if err != nil {
		return nil, err
	}
	return parseLogLines(out), nil
}

func parseLogLines(out string) []Ref {
	var refs []Ref
	for _, line := range strings.Split(strings.TrimRight(out, "\n"), "\n") {
		if line == "" {
			continue
		}
		parts := strings.Split(line, "\x1f")
		if len(parts) != 4 {
			continue
		}
		var parents []string
		if strings.TrimSpace(parts[1]) != "" {
			parents = strings.Fields(parts[1])
		}
		ts, _ := strconv.ParseInt(parts[2], 10, 64)
		refs = append(refs, Ref{
			ID:        parts[0],
			Type:      RefCommit,
			Name:      parts[0],
			ParentIDs: parents,
			Timestamp: time.Unix(ts, 0).UTC(),
			Message:   parts[3],
		})
	}
	return refs
}

// GetDiff gets the diff against from (or the empty tree for a root commit
// when from == "") to to (spec §4.7: "Get the diff against its first
// parent (or the empty tree for a root commit)").
func (g *Git) GetDiff(ctx context.Context, path, from, to string) ([]Change, error) {
	base := from
	if base == "" {
		out, err := g.run(ctx, path, "hash-object", "-t", "tree", "/dev/null")
		if err != nil {
			base = "4b825dc642cb6eb9a060e54bf8d69288fbee4904" // well-known empty-tree SHA
		} else {
			base = strings.TrimSpace(out)
		}
	}
	out, err := g.run(ctx, path, "diff", "--name-status", "-M", base, to)
	if err != nil {
		return nil, err
	}
	var changes []Change
	for _, line := range strings.Split(strings.TrimRight(out, "\n"), "\n") {
		if line == "" {
			continue
		}
		fields := strings.Split(line, "\t")
		if len(fields) < 2 {
			continue
		}
		status := fields[0]
		switch {
		case status == "A":
			changes = append(changes, Change{Key: fields[1], Status: ChangeAdded})
		case status == "M":
			changes = append(changes, Change{Key: fields[1], Status: ChangeModified})
		case status == "D":
			changes = append(changes, Change{Key: fields[1], Status: ChangeDeleted})
		case strings.HasPrefix(status, "R") && len(fields) >= 3:
			changes = append(changes, Change{Key: fields[2], Status: ChangeRenamed, RenamedFrom: fields[1]})
		default:
			changes = append(changes, Change{Key: fields[1], Status: ChangeModified})
		}
	}
	return changes, nil
}

func (g *Git) GetContent(ctx context.Context, path, key, ref string) ([]byte, error) {
	out, err := g.run(ctx, path, "show", ref+":"+key)
	if err != nil {
		return nil, err
	}
	return []byte(out), nil
}

func (g *Git) GetContentHash(ctx context.Context, path, key, ref string) (string, error) {
	out, err := g.run(ctx, path, "rev-parse", ref+":"+key)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(out), nil
}

func (g *Git) ListFiles(ctx context.Context, path, ref string) ([]string, error) {
	out, err := g.run(ctx, path, "ls-tree", "-r", "--name-only", ref)
	if err != nil {
		return nil, err
	}
	var files []string
	for _, line := range strings.Split(strings.TrimRight(out, "\n"), "\n") {
		if line != "" {
			files = append(files, line)
		}
	}
	return files, nil
}

func (g *Git) CanRetrieve(ctx context.Context, path, ref string) bool {
	_, err := g.run(ctx, path, "cat-file", "-e", ref)
	return err == nil
}
