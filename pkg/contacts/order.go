package contacts

import (
	"sort"
	"sync"

	"github.com/agendacontatos/agenda.go/pkg/models"
	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// sorter orders contacts by name with a locale-aware collator, then by ID so
// equal names keep a stable order.
type sorter struct {
	// collate.Collator is not safe for concurrent use.
	mu  sync.Mutex
	col *collate.Collator
}

func newSorter(tag language.Tag) *sorter {
	return &sorter{col: collate.New(tag)}
}

func (o *sorter) less(a, b models.Contact) bool {
	if c := o.col.CompareString(a.Name, b.Name); c != 0 {
		return c < 0
	}
	return a.ID < b.ID
}

func (o *sorter) sort(items []models.Contact) {
	o.mu.Lock()
	defer o.mu.Unlock()
	sort.SliceStable(items, func(i, j int) bool {
		return o.less(items[i], items[j])
	})
}

// insert returns a new slice with c placed at its sorted position.
func (o *sorter) insert(items []models.Contact, c models.Contact) []models.Contact {
	o.mu.Lock()
	i := sort.Search(len(items), func(i int) bool {
		return o.less(c, items[i])
	})
	o.mu.Unlock()

	out := make([]models.Contact, 0, len(items)+1)
	out = append(out, items[:i]...)
	out = append(out, c)
	return append(out, items[i:]...)
}
