package entity

import (
	"bytes"
	"encoding/json"
)

// ItemStatus is the kitchen status of one order line. The zero value is the
// unconfirmed state, stored as an empty string and serialized as JSON null.
type ItemStatus string

const (
	ItemUnconfirmed ItemStatus = ""
	ItemPending     ItemStatus = "Pending"
	ItemPreparing   ItemStatus = "Preparing"
	ItemReady       ItemStatus = "Ready"
	ItemServed      ItemStatus = "Served"
	ItemCancelled   ItemStatus = "Cancelled"
)

var itemRanks = map[ItemStatus]int{
	ItemUnconfirmed: 0,
	ItemPending:     1,
	ItemPreparing:   2,
	ItemReady:       3,
	ItemServed:      4,
}

// Rank orders the forward statuses. Cancelled and unknown values return -1.
func (s ItemStatus) Rank() int {
	if r, ok := itemRanks[s]; ok {
		return r
	}
	return -1
}

func (s ItemStatus) Valid() bool {
	return s == ItemCancelled || s.Rank() >= 0
}

func (s ItemStatus) IsTerminal() bool {
	return s == ItemServed || s == ItemCancelled
}

func (s ItemStatus) MarshalJSON() ([]byte, error) {
	if s == ItemUnconfirmed {
		return []byte("null"), nil
	}
	return json.Marshal(string(s))
}

func (s *ItemStatus) UnmarshalJSON(b []byte) error {
	if bytes.Equal(bytes.TrimSpace(b), []byte("null")) {
		*s = ItemUnconfirmed
		return nil
	}
	var v string
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	*s = ItemStatus(v)
	return nil
}
