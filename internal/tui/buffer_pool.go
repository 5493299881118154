package tui

import (
	"strings"
	"sync"

	"github.com/codefionn/chatterm/internal/consts"
)

// Builders that grew past this are dropped instead of pooled, so one huge
// history render does not pin memory for the rest of the session.
const maxBuilderCapacity = consts.BufferSize256KB

var builderPool = sync.Pool{
	New: func() any {
		return new(strings.Builder)
	},
}

func acquireBuilder() *strings.Builder {
	b := builderPool.Get().(*strings.Builder)
	b.Reset()
	return b
}

func releaseBuilder(b *strings.Builder) {
	if b == nil || b.Cap() > maxBuilderCapacity {
		return
	}
	b.Reset()
	builderPool.Put(b)
}

// render runs fn against a pooled builder and returns what it wrote.
func render(fn func(sb *strings.Builder)) string {
	sb := acquireBuilder()
	fn(sb)
	s := strings.Clone(sb.String())
	releaseBuilder(sb)
	return s
}
