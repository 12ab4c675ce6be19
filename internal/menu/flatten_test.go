package menu_test

import (
	"io"
	"path"
	"strings"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/joe/gamesync/internal/menu"
	"github.com/joe/gamesync/pkg/signature"
)

var gameTime = time.Date(2020, 6, 1, 12, 0, 0, 0, time.UTC)

// memGame is a game with one payload file of a fixed size.
type memGame struct {
	code     string
	size     int
	original bool
}

func (g *memGame) Code() string { return g.code }
func (g *memGame) Name() string { return "Game " + g.code }
func (g *memGame) IsOriginal() bool { return g.original }
func (g *memGame) Size() (int64, error) { return int64(g.size), nil }

func (g *memGame) CopyTo(targetDir string, _ menu.CopyMode, desired *signature.Set) (int64, error) {
	content := strings.Repeat("x", g.size)
	entry := &signature.Entry{
		Signature: signature.New(path.Join(targetDir, g.code, g.code+".bin"), int64(g.size), gameTime),
		Content: func() (io.ReadCloser, error) {
			return io.NopCloser(strings.NewReader(content)), nil
		},
	}

	if desired.Add(entry) {
		return int64(g.size), nil
	}

	return 0, nil
}

func paths(set *signature.Set) []string {
	out := []string{}
	for _, e := range set.Entries() {
		out = append(out, e.Path)
	}

	return out
}

var _ = Describe("Flatten", func() {
	var tree *menu.Tree

	BeforeEach(func() {
		tree = menu.NewTree()
	})

	flatten := func() *menu.Result {
		result, err := menu.Flatten(tree, menu.Options{Mode: menu.ModeSync})
		Expect(err).ToNot(HaveOccurred())

		return result
	}

	It("places root games in 000", func() {
		tree.Add(tree.Root(), &memGame{code: "A", size: 10})

		result := flatten()

		Expect(result.Index).To(Equal(map[menu.Handle]int{tree.Root(): 0}))
		Expect(paths(result.Desired)).To(Equal([]string{"000/A/A.bin"}))
		Expect(result.TotalGames).To(Equal(1))
		Expect(result.TotalSize).To(Equal(int64(10)))
		Expect(result.TransferSize).To(Equal(result.TotalSize))
	})

	It("numbers collections depth first", func() {
		a := tree.NewCollection()
		b := tree.NewCollection()
		c := tree.NewCollection()
		tree.Add(tree.Root(), menu.NewFolder("", "A", a))
		tree.Add(tree.Root(), menu.NewFolder("", "B", b))
		tree.Add(a, menu.NewFolder("", "C", c))
		tree.Add(c, &memGame{code: "G", size: 1})

		result := flatten()

		Expect(result.Index[a]).To(Equal(1))
		Expect(result.Index[c]).To(Equal(2))
		Expect(result.Index[b]).To(Equal(3))
		Expect(result.Menus).To(Equal([]menu.Handle{tree.Root(), a, c, b}))
		Expect(result.Dir(c)).To(Equal("002"))
		Expect(result.Desired.HasPath("002/G/G.bin")).To(BeTrue())
	})

	It("writes a descriptor for each folder that opens the child index", func() {
		a := tree.NewCollection()
		tree.Add(tree.Root(), menu.NewFolder("", "Shooters", a))

		result := flatten()

		entries := result.Desired.Entries()
		Expect(entries).To(HaveLen(1))
		Expect(entries[0].Path).To(Equal("000/CLV-S-00001/CLV-S-00001.desktop"))
		Expect(entries[0].ModTime).To(BeTemporally("==", menu.DefaultStamp))

		rc, err := entries[0].Open()
		Expect(err).ToNot(HaveOccurred())
		content, err := io.ReadAll(rc)
		Expect(err).ToNot(HaveOccurred())
		Expect(string(content)).To(ContainSubstring("Exec=/bin/chmenu 001\n"))
		Expect(string(content)).To(ContainSubstring("Name=Shooters\n"))
		Expect(int64(len(content))).To(Equal(entries[0].Size))
		Expect(result.TotalSize).To(Equal(entries[0].Size))
	})

	It("flattens a shared collection once and gives both folders its index", func() {
		shared := tree.NewCollection()
		other := tree.NewCollection()
		tree.Add(tree.Root(), menu.NewFolder("F1", "One", shared))
		tree.Add(tree.Root(), menu.NewFolder("", "Other", other))
		tree.Add(other, menu.NewFolder("F2", "Two", shared))
		tree.Add(shared, &memGame{code: "S", size: 7})

		result := flatten()

		Expect(result.Index[shared]).To(Equal(1))
		Expect(result.Menus).To(HaveLen(3))
		Expect(result.TotalGames).To(Equal(1))
		Expect(result.Desired.HasPath("001/S/S.bin")).To(BeTrue())
		Expect(result.Desired.HasPath("000/F1/F1.desktop")).To(BeTrue())
		Expect(result.Desired.HasPath("002/F2/F2.desktop")).To(BeTrue())
	})

	It("skips the trash folder entirely", func() {
		trash := tree.NewCollection()
		tree.Add(tree.Root(), menu.NewFolder("", menu.DefaultTrashName, trash))
		tree.Add(trash, &memGame{code: "T", size: 1000})

		result := flatten()

		Expect(result.TotalSize).To(BeZero())
		Expect(result.TotalGames).To(BeZero())
		Expect(result.Desired.Len()).To(BeZero())
		Expect(result.Index).ToNot(HaveKey(trash))
	})

	It("honours a custom trash name", func() {
		trash := tree.NewCollection()
		tree.Add(tree.Root(), menu.NewFolder("", "Bin", trash))
		tree.Add(trash, &memGame{code: "T", size: 1})

		result, err := menu.Flatten(tree, menu.Options{TrashName: "Bin"})
		Expect(err).ToNot(HaveOccurred())
		Expect(result.Desired.Len()).To(BeZero())
	})

	It("records the directory of every original game", func() {
		a := tree.NewCollection()
		tree.Add(tree.Root(), menu.NewFolder("", "A", a))
		tree.Add(a, &memGame{code: "CLV-P-SAAAE", size: 1, original: true})
		tree.Add(tree.Root(), &memGame{code: "CLV-H-ZZZZZ", size: 1})

		result := flatten()

		Expect(result.Originals).To(Equal(map[string]string{"CLV-P-SAAAE": "001"}))
	})

	It("is deterministic", func() {
		a := tree.NewCollection()
		tree.Add(tree.Root(), &memGame{code: "A", size: 3})
		tree.Add(tree.Root(), menu.NewFolder("", "Sub", a))
		tree.Add(a, &memGame{code: "B", size: 4})

		first := flatten()
		second := flatten()

		Expect(paths(second.Desired)).To(Equal(paths(first.Desired)))
		Expect(second.Index).To(Equal(first.Index))
		Expect(second.TotalSize).To(Equal(first.TotalSize))
	})

	It("handles an empty tree", func() {
		Expect(tree.IsEmpty()).To(BeTrue())

		result := flatten()

		Expect(result.Desired.Len()).To(BeZero())
		Expect(result.Menus).To(Equal([]menu.Handle{tree.Root()}))
	})
})
