package school

import (
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/masomo-admin/core"
)

var validate, translator = core.NewValidator()

// School is a colegio.
type School struct {
	ID      int         `json:"id"`
	Name    string      `json:"nombre"`
	Address string      `json:"direccion"`
	Phone   string      `json:"telefono"`
	Email   null.String `json:"email"`
	Website null.String `json:"sitio_web"`
	LogoURL string      `json:"logo"` // absolute, ready for display
	OwnerID int         `json:"usuario_id"`
}

func (s School) Identity() int { return s.ID }

// Draft contains the information a user may provide to create or edit a School.
type Draft struct {
	ID       int    `json:"id"`
	Name     string `json:"nombre" validate:"notblank"`
	Address  string `json:"direccion" validate:"notblank"`
	Phone    string `json:"telefono"`
	OwnerID  int    `json:"usuario_id"`
	LogoName string `json:"-"`
	Logo     []byte `json:"-" validate:"required_with=LogoName"`
}

func (d Draft) Identity() int { return d.ID }

// Validate cleans up d and runs the form checks.
func (d *Draft) Validate() error {
	d.Name = core.CleanString(d.Name)
	d.Address = core.CleanString(d.Address)
	d.Phone = core.CleanString(d.Phone)
	return core.ValidateStruct(validate, translator, d)
}

// Edit starts a Draft from an existing School. The logo is only sent again if replaced.
func Edit(s School) Draft {
	return Draft{
		ID:      s.ID,
		Name:    s.Name,
		Address: s.Address,
		Phone:   s.Phone,
		OwnerID: s.OwnerID,
	}
}
