package serializer

import (
	"strconv"
	"strings"
)

type segment struct {
	name    string
	index   int
	isIndex bool
}

type path []segment

func (p *path) pushName(name string) { *p = append(*p, segment{name: name}) }

func (p *path) pushIndex(i int) { *p = append(*p, segment{index: i, isIndex: true}) }

func (p *path) pop() { *p = (*p)[:len(*p)-1] }

func (p path) String() string {
	var b strings.Builder

	for i, s := range p {
		switch {
		case s.isIndex:
			b.WriteByte('[')
			b.WriteString(strconv.Itoa(s.index))
			b.WriteByte(']')
		case strings.ContainsAny(s.name, ".[]() '\"\t\n\r") || s.name == "":
			b.WriteString("['")
			b.WriteString(strings.ReplaceAll(s.name, "'", `\'`))
			b.WriteString("']")
		default:
			if i > 0 {
				b.WriteByte('.')
			}

			b.WriteString(s.name)
		}
	}

	return b.String()
}
