// Package commenttree rebuilds the reply tree of one post from its flat,
// parent-referencing comment rows.
//
// Nodes live in an arena indexed by id; parents hold child ids rather than
// pointers, so removing a comment is an index operation. Top-level comments
// are ordered newest first and replies oldest first. A reply whose parent is
// not in the batch is dropped, not promoted, and so is everything below it.
package commenttree

import (
	"sort"
	"time"

	"github.com/yond5413/pentagram/services/social/internal/actor"
)

// DefaultLimit is the number of top-level comments kept when the caller
// passes a non-positive limit. Replies are never truncated.
const DefaultLimit = 50

// Author is the public profile attached to a comment, when known.
type Author struct {
	ID          string `json:"id"`
	Username    string `json:"username"`
	DisplayName string `json:"display_name,omitempty"`
	AvatarURL   string `json:"avatar_url,omitempty"`
}

// Comment is one flat row as fetched from the store.
type Comment struct {
	ID        string    `json:"id"`
	PostID    string    `json:"post_id"`
	AuthorID  string    `json:"user_id"`
	ParentID  string    `json:"parent_comment_id,omitempty"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
	Author    *Author   `json:"author"`
}

// Thread is the rendered form of a node and its replies.
type Thread struct {
	Comment
	Replies    []Thread `json:"replies"`
	ReplyCount int      `json:"reply_count"`
	IsOwner    bool     `json:"is_owner"`
}

type node struct {
	c        Comment
	parent   string
	children []string
}

// Forest is the arena produced by Build.
type Forest struct {
	nodes   map[string]*node
	Roots   []string
	viewer  actor.Actor
	dropped int
}

// Build indexes comments, attaches replies to their parents and orders the
// result. It never fails: rows with an empty or repeated id, self-parented
// rows, orphans and anything caught in a parent cycle are left out.
func Build(comments []Comment, viewer actor.Actor, limit int) *Forest {
	if limit <= 0 {
		limit = DefaultLimit
	}
	f := &Forest{nodes: make(map[string]*node, len(comments)), viewer: viewer}

	order := make([]*node, 0, len(comments))
	for _, c := range comments {
		if c.ID == "" {
			f.dropped++
			continue
		}
		if _, dup := f.nodes[c.ID]; dup {
			f.dropped++
			continue
		}
		n := &node{c: c, parent: c.ParentID}
		f.nodes[c.ID] = n
		order = append(order, n)
	}

	for _, n := range order {
		switch {
		case n.parent == "":
			f.Roots = append(f.Roots, n.c.ID)
		case n.parent == n.c.ID:
		default:
			if p, ok := f.nodes[n.parent]; ok {
				p.children = append(p.children, n.c.ID)
			}
		}
	}

	// Anything not reachable from a top-level comment is an orphan, the
	// descendant of one, or part of a parent cycle.
	anchored := f.walk()
	f.dropped += len(f.nodes) - len(anchored)

	sort.SliceStable(f.Roots, func(i, j int) bool {
		return newestFirst(f.nodes[f.Roots[i]].c, f.nodes[f.Roots[j]].c)
	})
	if len(f.Roots) > limit {
		f.Roots = f.Roots[:limit]
	}

	kept := f.walk()
	for id := range f.nodes {
		if _, ok := kept[id]; !ok {
			delete(f.nodes, id)
		}
	}
	for _, n := range f.nodes {
		sort.SliceStable(n.children, func(i, j int) bool {
			return oldestFirst(f.nodes[n.children[i]].c, f.nodes[n.children[j]].c)
		})
	}
	return f
}

// Len is the number of comments in the forest.
func (f *Forest) Len() int { return len(f.walk()) }

// Dropped is the number of input rows left out of the tree because their
// parent chain never reached a top-level comment (or the row was malformed).
// Top-level comments cut by the limit are not counted.
func (f *Forest) Dropped() int { return f.dropped }

// Get returns the comment with id, if it is in the forest.
func (f *Forest) Get(id string) (Comment, bool) {
	n, ok := f.nodes[id]
	if !ok {
		return Comment{}, false
	}
	return n.c, true
}

// IsOwner reports whether the viewer wrote the comment.
func (f *Forest) IsOwner(id string) bool {
	n, ok := f.nodes[id]
	return ok && f.viewer.Is(n.c.AuthorID)
}

// Remove deletes exactly one comment from the arena. Its replies lose their
// parent and stop being rendered, mirroring the store where the delete does
// not cascade.
func (f *Forest) Remove(id string) bool {
	n, ok := f.nodes[id]
	if !ok {
		return false
	}
	delete(f.nodes, id)
	if n.parent == "" {
		f.Roots = without(f.Roots, id)
	} else if p, ok := f.nodes[n.parent]; ok {
		p.children = without(p.children, id)
	}
	return true
}

// Tree materialises the nested view.
func (f *Forest) Tree() []Thread {
	out := make([]Thread, 0, len(f.Roots))
	for _, id := range f.Roots {
		if _, ok := f.nodes[id]; ok {
			out = append(out, f.thread(id))
		}
	}
	return out
}

func (f *Forest) thread(id string) Thread {
	n := f.nodes[id]
	t := Thread{
		Comment: n.c,
		Replies: make([]Thread, 0, len(n.children)),
		IsOwner: f.viewer.Is(n.c.AuthorID),
	}
	for _, cid := range n.children {
		if _, ok := f.nodes[cid]; ok {
			t.Replies = append(t.Replies, f.thread(cid))
		}
	}
	t.ReplyCount = len(t.Replies)
	return t
}

func (f *Forest) walk() map[string]struct{} {
	seen := make(map[string]struct{}, len(f.nodes))
	stack := make([]string, 0, len(f.Roots))
	for _, id := range f.Roots {
		if _, ok := f.nodes[id]; ok {
			stack = append(stack, id)
		}
	}
	for len(stack) > 0 {
		id := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		for _, cid := range f.nodes[id].children {
			if _, ok := f.nodes[cid]; ok {
				stack = append(stack, cid)
			}
		}
	}
	return seen
}

func newestFirst(a, b Comment) bool {
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.After(b.CreatedAt)
	}
	return a.ID < b.ID
}

func oldestFirst(a, b Comment) bool {
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.Before(b.CreatedAt)
	}
	return a.ID < b.ID
}

func without(ids []string, id string) []string {
	for i, v := range ids {
		if v == id {
			return append(ids[:i:i], ids[i+1:]...)
		}
	}
	return ids
}
