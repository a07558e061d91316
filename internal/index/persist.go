package index

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"hash/crc32"
	"slices"

	"github.com/starford/nnotes/internal/apperr"
)

const (
	formatName    = "nnotes-inverted"
	formatVersion = 1

	postingsMagic = 0x4E4E4958 // "NNIX"
	headerSize    = 16
)

type meta struct {
	Format  string  `json:"format"`
	Version int     `json:"version"`
	Schema  []Field `json:"schema"`
}

func encodeMeta() ([]byte, error) {
	return json.MarshalIndent(meta{Format: formatName, Version: formatVersion, Schema: Schema}, "", "  ")
}

func checkMeta(raw []byte) error {
	var m meta
	if err := json.Unmarshal(raw, &m); err != nil {
		return fmt.Errorf("index: parse meta: %w: %w", apperr.ErrIndexCorrupt, err)
	}
	if m.Format != formatName || m.Version != formatVersion {
		return fmt.Errorf("index: unsupported format %q v%d: %w", m.Format, m.Version, apperr.ErrIndexCorrupt)
	}
	if !schemaMatches(m.Schema) {
		return fmt.Errorf("index: schema mismatch: %w", apperr.ErrIndexCorrupt)
	}
	return nil
}

type termEntry struct {
	Term     string    `json:"t"`
	Postings []Posting `json:"p"`
}

type snapshot struct {
	NextSeq uint64       `json:"next_seq"`
	Docs    []*storedDoc `json:"docs"`
	Terms   []termEntry  `json:"terms"`
}

// encodeSnapshot lays out the header followed by the JSON body:
//
//	magic u32 | version u32 | crc32(body) u32 | len(body) u32 | body
func encodeSnapshot(s *state) ([]byte, error) {
	snap := snapshot{NextSeq: s.nextSeq}
	for _, seq := range s.sortedSeqs() {
		snap.Docs = append(snap.Docs, s.docs[seq])
	}
	terms := make([]string, 0, len(s.terms))
	for t := range s.terms {
		terms = append(terms, t)
	}
	slices.Sort(terms)
	for _, t := range terms {
		snap.Terms = append(snap.Terms, termEntry{Term: t, Postings: s.terms[t]})
	}

	body, err := json.Marshal(snap)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	buf.Grow(headerSize + len(body))
	hdr := make([]byte, headerSize)
	binary.LittleEndian.PutUint32(hdr[0:4], postingsMagic)
	binary.LittleEndian.PutUint32(hdr[4:8], formatVersion)
	binary.LittleEndian.PutUint32(hdr[8:12], crc32.ChecksumIEEE(body))
	binary.LittleEndian.PutUint32(hdr[12:16], uint32(len(body)))
	buf.Write(hdr)
	buf.Write(body)
	return buf.Bytes(), nil
}

func decodeSnapshot(data []byte) (*state, error) {
	if len(data) < headerSize {
		return nil, fmt.Errorf("index: postings truncated: %w", apperr.ErrIndexCorrupt)
	}
	if binary.LittleEndian.Uint32(data[0:4]) != postingsMagic {
		return nil, fmt.Errorf("index: postings bad magic: %w", apperr.ErrIndexCorrupt)
	}
	if v := binary.LittleEndian.Uint32(data[4:8]); v != formatVersion {
		return nil, fmt.Errorf("index: postings version %d: %w", v, apperr.ErrIndexCorrupt)
	}
	sum := binary.LittleEndian.Uint32(data[8:12])
	size := binary.LittleEndian.Uint32(data[12:16])
	body := data[headerSize:]
	if uint32(len(body)) != size {
		return nil, fmt.Errorf("index: postings length %d, header says %d: %w", len(body), size, apperr.ErrIndexCorrupt)
	}
	if crc32.ChecksumIEEE(body) != sum {
		return nil, fmt.Errorf("index: postings checksum mismatch: %w", apperr.ErrIndexCorrupt)
	}

	var snap snapshot
	if err := json.Unmarshal(body, &snap); err != nil {
		return nil, fmt.Errorf("index: parse postings: %w: %w", apperr.ErrIndexCorrupt, err)
	}

	st := newState()
	st.nextSeq = snap.NextSeq
	for _, d := range snap.Docs {
		if d == nil || d.Seq == 0 || d.Seq > snap.NextSeq {
			return nil, fmt.Errorf("index: invalid stored document: %w", apperr.ErrIndexCorrupt)
		}
		if _, dup := st.docs[d.Seq]; dup {
			return nil, fmt.Errorf("index: duplicate seq %d: %w", d.Seq, apperr.ErrIndexCorrupt)
		}
		if d.Lengths == nil {
			d.Lengths = make(map[string]int)
		}
		st.docs[d.Seq] = d
		st.byID[d.ID] = append(st.byID[d.ID], d.Seq)
		for field, n := range d.Lengths {
			st.totals[field] += n
		}
	}
	for _, e := range snap.Terms {
		for _, p := range e.Postings {
			if _, ok := st.docs[p.Doc]; !ok {
				return nil, fmt.Errorf("index: term %q references unknown doc %d: %w", e.Term, p.Doc, apperr.ErrIndexCorrupt)
			}
			if !isTextField(p.Field) {
				return nil, fmt.Errorf("index: term %q has unknown field %q: %w", e.Term, p.Field, apperr.ErrIndexCorrupt)
			}
		}
		st.terms[e.Term] = e.Postings
	}
	return st, nil
}
