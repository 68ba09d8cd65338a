package mapping

import (
	"fmt"
	"time"

	"github.com/roach88/recordsync/internal/ir"
	"github.com/roach88/recordsync/internal/schema"
)

// testModel is a small notes model:
//
//	Folder.notes   <->> Note.folder   (Folder.notes cascades)
//	Folder.children <->> Folder.parent (Folder.children nullifies)
//	Note.author    ->   Person        (no inverse)
//	Note.tags      ->>  Tag           (to-many, never projected)
func testModel() *schema.Model {
	return schema.NewModel(
		schema.Entity{
			Name: "Folder",
			Attributes: []schema.Attribute{
				{Name: "name", Type: schema.TypeString},
			},
			Relationships: []schema.Relationship{
				{Name: "notes", Destination: "Note", ToMany: true, Inverse: "folder", DeleteRule: schema.DeleteRuleCascade},
				{Name: "parent", Destination: "Folder", Inverse: "children", DeleteRule: schema.DeleteRuleNullify},
				{Name: "children", Destination: "Folder", ToMany: true, Inverse: "parent", DeleteRule: schema.DeleteRuleNullify},
			},
		},
		schema.Entity{
			Name: "Note",
			Attributes: []schema.Attribute{
				{Name: "title", Type: schema.TypeString},
				{Name: "rank", Type: schema.TypeInt, Optional: true},
				{Name: "pinned", Type: schema.TypeBool},
			},
			Relationships: []schema.Relationship{
				{Name: "folder", Destination: "Folder", Inverse: "notes", DeleteRule: schema.DeleteRuleNullify},
				{Name: "author", Destination: "Person", DeleteRule: schema.DeleteRuleNullify},
				{Name: "tags", Destination: "Tag", ToMany: true, DeleteRule: schema.DeleteRuleNullify},
			},
		},
		schema.Entity{
			Name:       "Person",
			Attributes: []schema.Attribute{{Name: "name", Type: schema.TypeString}},
		},
		schema.Entity{
			Name:       "Tag",
			Attributes: []schema.Attribute{{Name: "label", Type: schema.TypeString}},
		},
	)
}

type folder struct {
	id     string
	system []byte
	name   string
	parent *folder
}

type person struct {
	id string
}

type tag struct {
	id string
}

type note struct {
	id       string
	modified time.Time
	system   []byte
	title    *string
	rank     *int64
	pinned   bool
	folder   *folder
	author   *person
	tags     []*tag
}

func strPtr(s string) *string { return &s }

func intPtr(n int64) *int64 { return &n }

func noteIdentity() Identity[note] {
	return Identity[note]{
		LocalID:         func(n *note) string { return n.id },
		ModifiedAt:      func(n *note) time.Time { return n.modified },
		SystemFields:    func(n *note) []byte { return n.system },
		SetSystemFields: func(n *note, b []byte) { n.system = b },
	}
}

func noteBuilder() *Builder[note] {
	return New[note](testModel(), "Note", noteIdentity()).
		Attribute("title",
			func(n *note) ir.IRValue {
				if n.title == nil {
					return ir.IRNull{}
				}
				return ir.IRString(*n.title)
			},
			func(n *note, v ir.IRValue) error {
				switch val := v.(type) {
				case ir.IRNull:
					n.title = nil
				case ir.IRString:
					n.title = strPtr(string(val))
				default:
					return fmt.Errorf("want string, got %T", v)
				}
				return nil
			}).
		Attribute("rank",
			func(n *note) ir.IRValue {
				if n.rank == nil {
					return nil
				}
				return ir.IRInt(*n.rank)
			},
			func(n *note, v ir.IRValue) error {
				switch val := v.(type) {
				case ir.IRNull:
					n.rank = nil
				case ir.IRInt:
					n.rank = intPtr(int64(val))
				default:
					return fmt.Errorf("want int, got %T", v)
				}
				return nil
			}).
		Attribute("pinned",
			func(n *note) ir.IRValue { return ir.IRBool(n.pinned) },
			func(n *note, v ir.IRValue) error {
				b, ok := v.(ir.IRBool)
				if !ok {
					return fmt.Errorf("want bool, got %T", v)
				}
				n.pinned = bool(b)
				return nil
			}).
		ToOne("folder", func(n *note) (string, bool) {
			if n.folder == nil {
				return "", false
			}
			return n.folder.id, true
		}).
		ToOne("author", func(n *note) (string, bool) {
			if n.author == nil {
				return "", false
			}
			return n.author.id, true
		})
}

func noteMapping() *Mapping[note] {
	return noteBuilder().MustBuild()
}

func folderMapping() *Mapping[folder] {
	return New[folder](testModel(), "Folder", Identity[folder]{
		LocalID:         func(f *folder) string { return f.id },
		SystemFields:    func(f *folder) []byte { return f.system },
		SetSystemFields: func(f *folder, b []byte) { f.system = b },
	}).
		Attribute("name",
			func(f *folder) ir.IRValue { return ir.IRString(f.name) },
			func(f *folder, v ir.IRValue) error {
				s, ok := v.(ir.IRString)
				if !ok {
					return fmt.Errorf("want string, got %T", v)
				}
				f.name = string(s)
				return nil
			}).
		ToOne("parent", func(f *folder) (string, bool) {
			if f.parent == nil {
				return "", false
			}
			return f.parent.id, true
		}).
		MustBuild()
}
