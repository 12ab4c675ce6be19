package menu

import (
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/joe/gamesync/pkg/signature"
)

// FolderCode returns the code used for a folder opening the collection at index.
func FolderCode(index int) string {
	return fmt.Sprintf("CLV-S-%05d", index)
}

// IndexDir formats a collection index as its directory name.
func IndexDir(index int) string {
	return fmt.Sprintf("%03d", index)
}

// FolderDescriptor renders the .desktop file that makes a folder open childIndex.
func FolderDescriptor(code, name string, childIndex int) string {
	var b strings.Builder

	b.WriteString("[Desktop Entry]\n")
	b.WriteString("Type=Application\n")
	fmt.Fprintf(&b, "Exec=/bin/chmenu %s\n", IndexDir(childIndex))
	b.WriteString("Path=/var/saves/FOLDER\n")
	fmt.Fprintf(&b, "Name=%s\n", name)
	fmt.Fprintf(&b, "Icon=/var/games/%s/%s.png\n", code, code)
	b.WriteString("\n[X-CLOVER Game]\n")
	fmt.Fprintf(&b, "Code=%s\n", code)
	b.WriteString("Players=1\n")
	b.WriteString("Simultaneous=0\n")
	b.WriteString("ReleaseDate=7777-77-77\n")
	b.WriteString("SaveCount=0\n")
	fmt.Fprintf(&b, "SortRawTitle=%s\n", strings.ToLower(name))

	return b.String()
}

// folderEntry builds the in-memory descriptor entry for a folder placed in
// targetDir. stamp fixes the modification time so unchanged folders match.
func folderEntry(targetDir, code, name string, childIndex int, stamp time.Time) *signature.Entry {
	content := FolderDescriptor(code, name, childIndex)

	return &signature.Entry{
		Signature: signature.New(path.Join(targetDir, code, code+DescriptorExt), int64(len(content)), stamp),
		Content: func() (io.ReadCloser, error) {
			return io.NopCloser(strings.NewReader(content)), nil
		},
	}
}
