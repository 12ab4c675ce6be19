//nolint:varnamelen // Test files use idiomatic short variable names (t, g, etc.)
package signature_test

import (
	"io"
	"strings"
	"testing"
	"time"

	. "github.com/onsi/gomega" //nolint:revive // Dot import is idiomatic for Gomega matchers

	"github.com/joe/gamesync/pkg/signature"
)

var (
	t1 = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	t2 = time.Date(2024, 3, 2, 12, 0, 0, 0, time.UTC)
)

func setOf(sigs ...signature.Signature) *signature.Set {
	set := signature.NewSet()
	for _, sig := range sigs {
		set.AddSignature(sig)
	}

	return set
}

func paths(entries []*signature.Entry) []string {
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.String())
	}

	return out
}

func TestDiff_NewFileIsUploaded(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	a := signature.New("000/A/a.bin", 100, t1)
	plan := signature.Diff(setOf(a), setOf())

	g.Expect(plan.ToDelete).To(BeEmpty())
	g.Expect(plan.ToUpload).To(HaveLen(1))
	g.Expect(plan.ToUpload[0].Signature).To(Equal(a))
	g.Expect(plan.UploadSize()).To(Equal(int64(100)))
}

func TestDiff_MatchingFileIsLeftAlone(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	a := signature.New("000/A/a.bin", 100, t1)
	plan := signature.Diff(setOf(a), setOf(signature.New("./000/A/a.bin", 100, t1.Add(400*time.Millisecond))))

	g.Expect(plan.Empty()).To(BeTrue())
}

func TestDiff_ChangedTimestampIsDeletedAndUploaded(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	desired := signature.New("000/A/a.bin", 100, t2)
	observed := signature.New("000/A/a.bin", 100, t1)
	plan := signature.Diff(setOf(desired), setOf(observed))

	g.Expect(plan.ToDelete).To(HaveLen(1))
	g.Expect(plan.ToDelete[0].Signature).To(Equal(observed))
	g.Expect(plan.ToUpload).To(HaveLen(1))
	g.Expect(plan.ToUpload[0].Signature).To(Equal(desired))
}

func TestDiff_ChangedSizeIsDeletedAndUploaded(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	plan := signature.Diff(
		setOf(signature.New("a", 101, t1)),
		setOf(signature.New("a", 100, t1)),
	)

	g.Expect(plan.ToDelete).To(HaveLen(1))
	g.Expect(plan.ToUpload).To(HaveLen(1))
	g.Expect(plan.DeleteSize()).To(Equal(int64(100)))
	g.Expect(plan.UploadSize()).To(Equal(int64(101)))
}

func TestDiff_OrphanIsDeleted(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	b := signature.New("001/B/b.bin", 10, t1)
	plan := signature.Diff(setOf(), setOf(b))

	g.Expect(plan.ToUpload).To(BeEmpty())
	g.Expect(paths(plan.ToDelete)).To(ConsistOf(b.String()))
}

func TestDiff_SetLaws(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	desired := setOf(
		signature.New("000/a", 1, t1),
		signature.New("000/b", 2, t1),
		signature.New("001/c", 3, t2),
	)
	observed := setOf(
		signature.New("000/a", 1, t1),
		signature.New("000/b", 2, t2),
		signature.New("002/d", 4, t1),
	)

	plan := signature.Diff(desired, observed)

	for _, e := range plan.ToDelete {
		g.Expect(observed.Contains(e.Signature)).To(BeTrue())
		g.Expect(desired.Contains(e.Signature)).To(BeFalse())
	}

	for _, e := range plan.ToUpload {
		g.Expect(desired.Contains(e.Signature)).To(BeTrue())
		g.Expect(observed.Contains(e.Signature)).To(BeFalse())
	}

	g.Expect(plan.ToDelete).To(HaveLen(2))
	g.Expect(plan.ToUpload).To(HaveLen(2))

	// once the target matches, nothing is left to do
	g.Expect(signature.Diff(desired, desired).Empty()).To(BeTrue())
}

func TestSet_PathsAreUnique(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	set := signature.NewSet()
	g.Expect(set.AddSignature(signature.New("000/a", 1, t1))).To(BeTrue())
	g.Expect(set.AddSignature(signature.New("000/a", 2, t2))).To(BeFalse())
	g.Expect(set.Len()).To(Equal(1))
	g.Expect(set.HasPath("./000/a")).To(BeTrue())
	g.Expect(set.TotalSize()).To(Equal(int64(1)))
}

func TestSet_Filter(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	set := setOf(signature.New("000/a", 1, t1), signature.New("000/pixelart", 2, t1))
	kept := set.Filter(func(sig signature.Signature) bool {
		return !strings.HasSuffix(sig.Path, "pixelart")
	})

	g.Expect(kept.Len()).To(Equal(1))
	g.Expect(kept.HasPath("000/a")).To(BeTrue())
}

func TestEntry_OpenContent(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	entry := &signature.Entry{
		Signature: signature.New("x", 5, t1),
		Content: func() (io.ReadCloser, error) {
			return io.NopCloser(strings.NewReader("hello")), nil
		},
	}

	r, err := entry.Open()
	g.Expect(err).ToNot(HaveOccurred())

	data, err := io.ReadAll(r)
	g.Expect(err).ToNot(HaveOccurred())
	g.Expect(string(data)).To(Equal("hello"))

	_, err = signature.NewEntry(signature.New("y", 1, t1)).Open()
	g.Expect(err).To(MatchError(signature.ErrNoSource))
}

func TestNormalizePath(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	g.Expect(signature.NormalizePath("./000/a")).To(Equal("000/a"))
	g.Expect(signature.NormalizePath("/000//a")).To(Equal("000/a"))
	g.Expect(signature.NormalizePath(`000\b\c`)).To(Equal("000/b/c"))
}
