package models

// IDSet es un conjunto de identificadores.
type IDSet map[string]struct{}

func NewIDSet(ids ...string) IDSet {
	s := make(IDSet, len(ids))
	for _, id := range ids {
		s[id] = struct{}{}
	}
	return s
}

func (s IDSet) Add(id string) { s[id] = struct{}{} }

func (s IDSet) Has(id string) bool {
	_, ok := s[id]
	return ok
}

// Union agrega a s todos los elementos de other.
func (s IDSet) Union(other IDSet) IDSet {
	for id := range other {
		s[id] = struct{}{}
	}
	return s
}

// ContainsAll indica si todos los ids están en s.
func (s IDSet) ContainsAll(ids []string) bool {
	for _, id := range ids {
		if !s.Has(id) {
			return false
		}
	}
	return true
}
