package school

import (
	"encoding/json"

	"github.com/volatiletech/null/v8"

	"github.com/trezcool/masomo-admin/core"
	"github.com/trezcool/masomo-admin/core/resource"
)

var Endpoints = resource.Endpoints{
	List:   "/institucion/listar-colegios/",
	Create: "/institucion/crear/",
	Update: "/institucion/editar/%d/",
	Delete: "/institucion/eliminar/%d/",
}

type wireSchool struct {
	ID      resource.WireID  `json:"id"`
	Name    *string          `json:"nombre"`
	Address null.String      `json:"direccion"`
	Phone   null.String      `json:"telefono"`
	Email   null.String      `json:"email"`
	Website null.String      `json:"sitio_web"`
	Logo    null.String      `json:"logo"`
	Owner   resource.WireRef `json:"usuario_id"`
	Legacy  resource.WireRef `json:"superAdminFk"`
}

// Codec maps schools; relative logo paths are resolved against AssetBase.
type Codec struct {
	AssetBase string
}

var _ resource.Codec[School, Draft] = Codec{}

func (c Codec) Decode(raw json.RawMessage) (School, error) {
	var w wireSchool
	if err := json.Unmarshal(raw, &w); err != nil {
		return School{}, core.NewMalformedField("", err)
	}
	if w.ID == 0 {
		return School{}, core.NewMalformedField("id", nil)
	}
	if w.Name == nil {
		return School{}, core.NewMalformedField("nombre", nil)
	}
	owner := w.Owner.Int()
	if owner == 0 {
		owner = w.Legacy.Int()
	}
	return School{
		ID:      w.ID.Int(),
		Name:    *w.Name,
		Address: w.Address.String,
		Phone:   w.Phone.String,
		Email:   w.Email,
		Website: w.Website,
		LogoURL: resource.AssetURL(c.AssetBase, w.Logo.String),
		OwnerID: owner,
	}, nil
}

func (c Codec) Encode(d Draft) (*resource.Payload, error) {
	return resource.NewPayload().
		Set("nombre", d.Name).
		Set("direccion", d.Address).
		Set("telefono", d.Phone).
		Set("usuario_id", null.NewInt(d.OwnerID, d.OwnerID != 0)).
		AttachFile("logo", d.LogoName, d.Logo), nil
}

func (c Codec) Merge(s School, d Draft) School {
	s.ID = d.ID
	if d.Name != "" {
		s.Name = d.Name
	}
	if d.Address != "" {
		s.Address = d.Address
	}
	if d.Phone != "" {
		s.Phone = d.Phone
	}
	if d.OwnerID != 0 {
		s.OwnerID = d.OwnerID
	}
	return s
}

// NewController returns the schools controller.
func NewController(tr resource.Transport, assetBase string, logger core.Logger) *resource.Controller[School, Draft] {
	return resource.NewController(resource.Options[School, Draft]{
		Name:      "schools",
		Endpoints: Endpoints,
		Codec:     Codec{AssetBase: assetBase},
		Transport: tr,
		Validate:  (*Draft).Validate,
		Logger:    logger,
	})
}
