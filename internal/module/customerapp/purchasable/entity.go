package purchasable

type Kind string

const (
	KindEvent   Kind = "event"
	KindProduct Kind = "product"
	KindCourse  Kind = "course"
)

// Reference points at a catalog entity a purchase is made for.
type Reference struct {
	Kind Kind   `json:"kind" validate:"required,oneof=event product course"`
	ID   string `json:"id" validate:"required"`
}

type Purchasable struct {
	Kind Kind
	ID   string
	Name string
}

func (p Purchasable) Reference() Reference {
	return Reference{Kind: p.Kind, ID: p.ID}
}
