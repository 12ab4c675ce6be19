package signature

// Plan is the outcome of a diff: what to remove from the target and what to
// send to it. A file whose size or mtime differs shows up in both lists, the
// stale copy in ToDelete and the new one in ToUpload.
type Plan struct {
	ToDelete []*Entry
	ToUpload []*Entry
}

// Diff computes observed − desired (to delete) and desired − observed (to upload).
func Diff(desired, observed *Set) *Plan {
	return &Plan{
		ToDelete: observed.Except(desired),
		ToUpload: desired.Except(observed),
	}
}

// DeleteSize returns the bytes held by stale entries.
func (p *Plan) DeleteSize() int64 {
	return sumSizes(p.ToDelete)
}

// Empty reports whether the target already matches.
func (p *Plan) Empty() bool {
	return len(p.ToDelete) == 0 && len(p.ToUpload) == 0
}

// UploadSize returns the bytes that must be transferred.
func (p *Plan) UploadSize() int64 {
	return sumSizes(p.ToUpload)
}

func sumSizes(entries []*Entry) int64 {
	var total int64
	for _, e := range entries {
		total += e.Size
	}

	return total
}
