package document

import (
	"fmt"

	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"
)

const maxTreeDepth = 64

// Page is one leaf of the page tree. Width and Height come from the effective
// MediaBox, whose lower-left corner is (OriginX, OriginY) in native space.
type Page struct {
	Number  int     `json:"number"`
	Width   float64 `json:"width"`
	Height  float64 `json:"height"`
	OriginX float64 `json:"originX,omitempty"`
	OriginY float64 `json:"originY,omitempty"`

	dict         types.Dict
	objNr        int
	inheritedRes types.Object
}

// letter is the MediaBox assumed when the page tree declares none.
var letter = []float64{0, 0, 612, 792}

func (d *Document) collectPages() error {
	root, err := d.ctx.Catalog()
	if err != nil {
		return err
	}
	obj, found := root.Find("Pages")
	if !found {
		return fmt.Errorf("catalog has no page tree")
	}
	visited := make(map[int]bool)
	return d.walkPages(obj, nil, nil, visited, 0)
}

func (d *Document) walkPages(obj types.Object, mediaBox []float64, resources types.Object, visited map[int]bool, depth int) error {
	if depth > maxTreeDepth {
		return fmt.Errorf("page tree deeper than %d levels", maxTreeDepth)
	}
	objNr := objectNumber(obj)
	if objNr != 0 {
		if visited[objNr] {
			return fmt.Errorf("page tree cycle at object %d", objNr)
		}
		visited[objNr] = true
	}

	node := d.dict(obj)
	if node == nil {
		return fmt.Errorf("page tree node %d is not a dictionary", objNr)
	}

	if box, ok := d.numbers(node["MediaBox"], 4); ok {
		mediaBox = box
	}
	if res, found := node.Find("Resources"); found {
		resources = res
	}

	if kidsObj, found := node.Find("Kids"); found && d.name(node, "Type") != "Page" {
		for _, kid := range d.array(kidsObj) {
			if err := d.walkPages(kid, mediaBox, resources, visited, depth+1); err != nil {
				return err
			}
		}
		return nil
	}

	if mediaBox == nil {
		mediaBox = letter
	}
	llx, lly, urx, ury := mediaBox[0], mediaBox[1], mediaBox[2], mediaBox[3]
	if urx < llx {
		llx, urx = urx, llx
	}
	if ury < lly {
		lly, ury = ury, lly
	}

	page := &Page{
		Number:  len(d.pages) + 1,
		Width:   urx - llx,
		Height:  ury - lly,
		dict:    node,
		objNr:   objNr,
		OriginX: llx,
		OriginY: lly,
	}
	if _, own := node.Find("Resources"); !own {
		page.inheritedRes = resources
	}
	d.pages = append(d.pages, page)
	return nil
}

// resources returns the page's own resource dictionary. Inherited resources
// are copied onto the page first so additions stay local to it.
func (d *Document) resources(p *Page) types.Dict {
	if obj, found := p.dict.Find("Resources"); found {
		if res := d.dict(obj); res != nil {
			return res
		}
	}

	res := types.Dict{}
	if p.inheritedRes != nil {
		for k, v := range d.dict(p.inheritedRes) {
			res[k] = v
		}
	}
	p.dict["Resources"] = res
	p.inheritedRes = nil
	return res
}

// subDict returns res[key] as a dictionary that may be modified. Direct
// subdictionaries are copied since they may be shared with other pages.
func (d *Document) subDict(res types.Dict, key string) types.Dict {
	obj, found := res.Find(key)
	if found {
		if _, indirect := obj.(types.IndirectRef); indirect {
			if sub := d.dict(obj); sub != nil {
				return sub
			}
		}
	}

	sub := types.Dict{}
	if found {
		for k, v := range d.dict(obj) {
			sub[k] = v
		}
	}
	res[key] = sub
	return sub
}

// PageFont registers one of the standard 14 fonts in the page's resources
// and returns the resource name to use with Tf.
func (d *Document) PageFont(pageNr int, baseFont string) (string, error) {
	p, err := d.page(pageNr)
	if err != nil {
		return "", err
	}
	ref, err := d.standardFont(baseFont)
	if err != nil {
		return "", err
	}

	fonts := d.subDict(d.resources(p), "Font")
	for name, obj := range fonts {
		if existing, ok := obj.(types.IndirectRef); ok && existing.ObjectNumber == ref.ObjectNumber {
			return name, nil
		}
	}

	name := uniqueName(fonts, "FF"+fontTag(baseFont))
	fonts[name] = ref
	return name, nil
}

func fontTag(baseFont string) string {
	switch baseFont {
	case "Helvetica":
		return "Helv"
	case "Helvetica-Bold":
		return "HeBo"
	case "ZapfDingbats":
		return "ZaDb"
	default:
		tag := []rune{}
		for _, r := range baseFont {
			if (r >= 'A' && r <= 'Z') || (r >= 'a' && r <= 'z') {
				tag = append(tag, r)
			}
			if len(tag) == 4 {
				break
			}
		}
		return string(tag)
	}
}

// addXObject registers a form XObject in the page's resources and returns its
// resource name.
func (d *Document) addXObject(p *Page, ref types.IndirectRef) string {
	xobjects := d.subDict(d.resources(p), "XObject")
	name := uniqueName(xobjects, "Fm")
	xobjects[name] = ref
	return name
}

// AppendContent draws content on top of the existing page content. The old
// content is wrapped in q/Q so its graphics state cannot leak into ours.
func (d *Document) AppendContent(pageNr int, content []byte) error {
	p, err := d.page(pageNr)
	if err != nil {
		return err
	}
	return d.appendContent(p, content)
}

func (d *Document) appendContent(p *Page, content []byte) error {
	var existing types.Array
	if obj, found := p.dict.Find("Contents"); found && obj != nil {
		resolved, err := d.ctx.Dereference(obj)
		if err != nil {
			return fmt.Errorf("failed to resolve page %d contents: %w", p.Number, err)
		}
		if arr, ok := resolved.(types.Array); ok {
			existing = arr
		} else if resolved != nil {
			existing = types.Array{obj}
		}
	}

	pre, err := d.newStream(nil, []byte("q\n"))
	if err != nil {
		return err
	}
	body := make([]byte, 0, len(content)+3)
	body = append(body, "Q\n"...)
	body = append(body, content...)
	post, err := d.newStream(nil, body)
	if err != nil {
		return err
	}

	contents := make(types.Array, 0, len(existing)+2)
	contents = append(contents, pre)
	contents = append(contents, existing...)
	contents = append(contents, post)
	p.dict["Contents"] = contents
	return nil
}
