//nolint:varnamelen // Test files use idiomatic short variable names (t, g, etc.)
package signature_test

import (
	"strings"
	"testing"
	"time"

	. "github.com/onsi/gomega" //nolint:revive // Dot import is idiomatic for Gomega matchers

	"github.com/joe/gamesync/pkg/signature"
)

func TestParseListing_StatFormat(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	listing := strings.Join([]string{
		"./000/CLV-H-AAAAA/CLV-H-AAAAA.desktop 312 2024-03-01 12:00:00.000000000 +0000",
		"./001/CLV-H-BBBBB/My Game (USA).sfrom 1048576 2024-03-01 13:00:00.500000000 +0100",
		"",
	}, "\n")

	set, err := signature.ParseListing(strings.NewReader(listing))
	g.Expect(err).ToNot(HaveOccurred())
	g.Expect(set.Len()).To(Equal(2))

	g.Expect(set.Contains(signature.New("000/CLV-H-AAAAA/CLV-H-AAAAA.desktop", 312, t1))).To(BeTrue())
	g.Expect(set.Contains(signature.New(
		"001/CLV-H-BBBBB/My Game (USA).sfrom", 1048576, time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC),
	))).To(BeTrue())
}

func TestParseListing_UnixSeconds(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	sig := signature.New("002/with space/file", 7, t2)

	set, err := signature.ParseListing(strings.NewReader(signature.FormatListingLine(sig) + "\r\n"))
	g.Expect(err).ToNot(HaveOccurred())
	g.Expect(set.Contains(sig)).To(BeTrue())
}

func TestParseListing_Malformed(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	_, err := signature.ParseListing(strings.NewReader("justapath\n"))
	g.Expect(err).To(MatchError(ContainSubstring("line 1")))

	_, err = signature.ParseListing(strings.NewReader("./a notanumber 1700000000\n"))
	g.Expect(err).To(HaveOccurred())

	_, err = signature.ParseListingLine("./a 10 yesterday")
	g.Expect(err).To(HaveOccurred())
}
