// Copyright 2026 The Mellium Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

package frame_test

import (
	"bytes"
	"errors"
	"strconv"
	"testing"

	"mellium.im/wsbridge/frame"
)

const streamHeader = `<stream:stream xmlns='jabber:client' xmlns:stream='http://etherx.jabber.org/streams' to='example.com'>`

var decodeTests = [...]struct {
	in      string
	started bool
	out     string
	rest    string
	err     error
}{
	0: {},
	1: {in: streamHeader, out: streamHeader},
	2: {in: streamHeader + "<stream:features/>", out: streamHeader, rest: "<stream:features/>"},
	3: {in: "<?xml version='1.0'?>" + streamHeader, out: "<?xml version='1.0'?>" + streamHeader},
	4: {in: `<message to='a'>hi</message>`, started: true, out: `<message to='a'>hi</message>`},
	5: {in: `<stream:error><bad-format/></stream:error>`, started: true, out: `<stream:error><bad-format/></stream:error>`},
	6: {in: "\n  <presence/>", started: true, out: "<presence/>"},
	7: {in: "<presence/><iq/>", started: true, out: "<presence/>", rest: "<iq/>"},
	8: {in: `</stream:stream>`, started: true, out: `</stream:stream>`},
	9: {in: `<!-- comment -->`, started: true, out: `<!-- comment -->`},
	10: {
		in:      `<message><body><![CDATA[a<b>c</d>]]></body></message>`,
		started: true,
		out:     `<message><body><![CDATA[a<b>c</d>]]></body></message>`,
	},
	11: {in: `<message><body>partial`, started: true, rest: `<message><body>partial`},
	12: {in: `<a>x</a`, started: true, rest: `<a>x</a`},
	13: {in: `<mess`, started: true, rest: `<mess`},
	14: {in: `<stream:stream to='a'`, rest: `<stream:stream to='a'`},
	15: {in: `<?xml version='1.0'?><a/>`, started: true, out: `<?xml version='1.0'?><a/>`},
	16: {in: "   \n\t", started: true},
	17: {in: "x<a/>", started: true, rest: "<a/>", err: frame.ContentBeforeStart},
	18: {in: `<a b='c'/>`, started: true, out: `<a b='c'/>`},
	19: {in: `<`, started: true, rest: `<`},
	20: {in: `</stream:stream><mess`, started: true, out: `</stream:stream>`, rest: `<mess`},
	21: {in: "<é/><a/>", started: true, out: "<é/>", rest: "<a/>"},
	22: {in: "<ü>x</ü>", started: true, out: "<ü>x</ü>"},
}

func TestDecode(t *testing.T) {
	for i, tc := range decodeTests {
		t.Run(strconv.Itoa(i), func(t *testing.T) {
			var d frame.Decoder
			buf := bytes.NewBufferString(tc.in)
			out, err := d.Decode(buf, tc.started)
			if err != tc.err {
				t.Errorf("unexpected error: want=%v, got=%v", tc.err, err)
			}
			if string(out) != tc.out {
				t.Errorf("wrong frame: want=%q, got=%q", tc.out, out)
			}
			if rest := buf.String(); rest != tc.rest {
				t.Errorf("wrong data left in buffer: want=%q, got=%q", tc.rest, rest)
			}
		})
	}
}

func TestDecodeScenarioSplit(t *testing.T) {
	var d frame.Decoder
	buf := &bytes.Buffer{}

	buf.WriteString("<mess")
	out, err := d.Decode(buf, true)
	if err != nil || out != nil {
		t.Fatalf("expected no frame from partial input, got %q, %v", out, err)
	}
	buf.WriteString("age>x</message>")
	out, err = d.Decode(buf, true)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if want := "<message>x</message>"; string(out) != want {
		t.Errorf("wrong frame: want=%q, got=%q", want, out)
	}
	if buf.Len() != 0 {
		t.Errorf("expected buffer to be drained, got %q", buf.String())
	}
}

// decodeAll feeds chunks to a decoder the way a session does and returns every
// frame that was extracted.
func decodeAll(t *testing.T, chunks []string) []string {
	t.Helper()
	d := frame.Decoder{DiscardAfter: -1}
	buf := &bytes.Buffer{}
	started := false
	var frames []string
	for _, chunk := range chunks {
		buf.WriteString(chunk)
		for buf.Len() > 0 {
			out, err := d.Decode(buf, started)
			if err != nil {
				t.Fatalf("unexpected error decoding %q: %v", chunk, err)
			}
			if out == nil {
				break
			}
			started = true
			frames = append(frames, string(out))
		}
	}
	return frames
}

var chunkInputs = [...]string{
	0: streamHeader,
	1: streamHeader + `<stream:features><mechanisms xmlns='urn:ietf:params:xml:ns:xmpp-sasl'><mechanism>PLAIN</mechanism></mechanisms></stream:features>`,
	2: streamHeader + "\n<message to='a'>hi</message> <presence/>\n<iq type='get'><query/></iq>",
	3: streamHeader + `<message><body><![CDATA[</body>]]></body></message></stream:stream>`,
}

func TestChunkBoundaryInvariance(t *testing.T) {
	for i, in := range chunkInputs {
		t.Run(strconv.Itoa(i), func(t *testing.T) {
			want := decodeAll(t, []string{in})
			if len(want) == 0 {
				t.Fatalf("expected frames from unsplit input")
			}

			for split := 1; split < len(in); split++ {
				got := decodeAll(t, []string{in[:split], in[split:]})
				if !equal(want, got) {
					t.Fatalf("split at %d: want=%q, got=%q", split, want, got)
				}
			}

			chunks := make([]string, 0, len(in))
			for j := 0; j < len(in); j++ {
				chunks = append(chunks, in[j:j+1])
			}
			if got := decodeAll(t, chunks); !equal(want, got) {
				t.Errorf("byte at a time: want=%q, got=%q", want, got)
			}
		})
	}
}

func equal(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestContentBeforeStartResync(t *testing.T) {
	var d frame.Decoder
	buf := bytes.NewBufferString("ab<a/>")
	for i := 0; i < 2; i++ {
		_, err := d.Decode(buf, true)
		if !errors.Is(err, frame.ContentBeforeStart) {
			t.Fatalf("call %d: want=%v, got=%v", i, frame.ContentBeforeStart, err)
		}
	}
	out, err := d.Decode(buf, true)
	if err != nil {
		t.Fatalf("unexpected error after resync: %v", err)
	}
	if string(out) != "<a/>" {
		t.Errorf("wrong frame after resync: want=%q, got=%q", "<a/>", out)
	}
}

func TestFrameTooLarge(t *testing.T) {
	d := frame.Decoder{MaxSize: 8}

	buf := bytes.NewBufferString("<message>hello</message>")
	_, err := d.Decode(buf, true)
	if err != frame.FrameTooLarge {
		t.Errorf("complete frame: want=%v, got=%v", frame.FrameTooLarge, err)
	}
	if buf.Len() != len("<message>hello</message>") {
		t.Errorf("buffer should not be consumed on error, has %d bytes left", buf.Len())
	}

	buf = bytes.NewBufferString("<message>hello")
	_, err = d.Decode(buf, true)
	if err != frame.FrameTooLarge {
		t.Errorf("incomplete frame: want=%v, got=%v", frame.FrameTooLarge, err)
	}

	buf = bytes.NewBufferString("<a/>")
	out, err := d.Decode(buf, true)
	if err != nil || string(out) != "<a/>" {
		t.Errorf("small frame: want=%q, got=%q, %v", "<a/>", out, err)
	}
}

func TestDiscardStale(t *testing.T) {
	d := frame.Decoder{DiscardAfter: 2}
	buf := bytes.NewBufferString("<message>")
	for i := 0; i < 2; i++ {
		out, err := d.Decode(buf, true)
		if out != nil || err != nil {
			t.Fatalf("call %d: expected to wait, got %q, %v", i, out, err)
		}
	}
	_, err := d.Decode(buf, true)
	if err != frame.ErrStale {
		t.Fatalf("want=%v, got=%v", frame.ErrStale, err)
	}
	if buf.Len() != 0 {
		t.Errorf("expected stale data to be discarded, got %q", buf.String())
	}

	// A successful extraction resets the count.
	buf.WriteString("<a>")
	if _, err = d.Decode(buf, true); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	buf.WriteString("</a>")
	if out, err := d.Decode(buf, true); err != nil || string(out) != "<a></a>" {
		t.Fatalf("want=%q, got=%q, %v", "<a></a>", out, err)
	}
	buf.WriteString("<b>")
	for i := 0; i < 2; i++ {
		if _, err = d.Decode(buf, true); err != nil {
			t.Fatalf("call %d after reset: unexpected error: %v", i, err)
		}
	}
}

func TestDiscardDisabled(t *testing.T) {
	d := frame.Decoder{DiscardAfter: -1}
	buf := bytes.NewBufferString("<message>")
	for i := 0; i < 2*frame.DefaultDiscardAfter; i++ {
		if _, err := d.Decode(buf, true); err != nil {
			t.Fatalf("call %d: unexpected error: %v", i, err)
		}
	}
	if buf.String() != "<message>" {
		t.Errorf("buffer should be retained, got %q", buf.String())
	}
}
