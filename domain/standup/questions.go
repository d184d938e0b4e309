package standup

// Questions is the ordered list asked to every member.
type Questions []string

// At returns the question for a zero based index.
func (q Questions) At(index int) (string, bool) {
	if index < 0 || index >= len(q) {
		return "", false
	}
	return q[index], true
}
