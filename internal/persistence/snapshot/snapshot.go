// Package snapshot dumps and restores a whole item database as one
// zstd-compressed file: a JSON header line followed by one item per line.
package snapshot

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/klauspost/compress/zstd"

	"socketcraft.ai/internal/item"
)

const Version = 1

type Header struct {
	Version   int       `json:"version"`
	Namespace string    `json:"namespace"`
	Items     int       `json:"items"`
	CreatedAt time.Time `json:"created_at"`
}

// Record is one stored document with its owner.
type Record struct {
	Owner string    `json:"owner,omitempty"`
	Item  item.Item `json:"item"`
}

type Snapshot struct {
	Header  Header
	Records []Record
}

// FromItems builds a snapshot of items, keeping each item's owner.
func FromItems(namespace string, items []*item.Item) Snapshot {
	s := Snapshot{Header: Header{Version: Version, Namespace: namespace, Items: len(items), CreatedAt: time.Now().UTC()}}
	for _, it := range items {
		s.Records = append(s.Records, Record{Owner: it.OwnerID, Item: *it.Clone()})
	}
	return s
}

// Items returns the records as documents with OwnerID set.
func (s Snapshot) Items() []*item.Item {
	out := make([]*item.Item, 0, len(s.Records))
	for _, r := range s.Records {
		it := r.Item.Clone()
		it.OwnerID = r.Owner
		out = append(out, it)
	}
	return out
}

func Write(path string, snap Snapshot) (err error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()

	enc, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return err
	}
	bw := bufio.NewWriterSize(enc, 256*1024)

	snap.Header.Items = len(snap.Records)
	je := json.NewEncoder(bw)
	if err := je.Encode(snap.Header); err != nil {
		_ = enc.Close()
		return err
	}
	for i := range snap.Records {
		if err := je.Encode(snap.Records[i]); err != nil {
			_ = enc.Close()
			return fmt.Errorf("record %d: %w", i, err)
		}
	}
	if err := bw.Flush(); err != nil {
		_ = enc.Close()
		return err
	}
	return enc.Close()
}

func Read(path string) (Snapshot, error) {
	var snap Snapshot
	f, err := os.Open(path)
	if err != nil {
		return snap, err
	}
	defer f.Close()

	dec, err := zstd.NewReader(f)
	if err != nil {
		return snap, err
	}
	defer dec.Close()

	jd := json.NewDecoder(bufio.NewReaderSize(dec, 256*1024))
	if err := jd.Decode(&snap.Header); err != nil {
		return snap, fmt.Errorf("header: %w", err)
	}
	if snap.Header.Version != Version {
		return snap, fmt.Errorf("unsupported snapshot version %d", snap.Header.Version)
	}
	for jd.More() {
		var r Record
		if err := jd.Decode(&r); err != nil {
			return snap, fmt.Errorf("record %d: %w", len(snap.Records), err)
		}
		snap.Records = append(snap.Records, r)
	}
	if len(snap.Records) != snap.Header.Items {
		return snap, fmt.Errorf("truncated snapshot: header says %d items, read %d", snap.Header.Items, len(snap.Records))
	}
	return snap, nil
}
