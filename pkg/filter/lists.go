package filter

import (
	stderrors "errors"
	"os"

	"github.com/goccy/go-yaml"

	"github.com/agentstation/gamesync/pkg/errors"
)

// DefaultNameBlocklist holds the substrings that mark a catalog entry as
// something other than a base game.
var DefaultNameBlocklist = []string{
	"soundtrack",
	"artbook",
	"dlc",
	"expansion",
	"cosmetic",
	"cosmetics",
	"bundle",
	"bundle pack",
	"season pass",
	"adult",
	"sexual",
	"xxx",
}

// DefaultTagBlocklist holds storefront feature tags that say nothing about
// the game itself.
var DefaultTagBlocklist = []string{
	// achievements and cards
	"logros de steam", "steam achievements", "cromos de steam", "steam cards",
	"steam trading cards", "tarjetas intercambiables de steam", "logros",
	"trading cards", "tarjetas intercambiables",

	// storage and sync
	"préstamo familiar", "steam cloud", "cloud save", "cloud saves", "nube",
	"sincronización con la nube",

	// controllers
	"compat. total con mando", "compat. parcial con mando",
	"soporte total de controles", "full controller support",
	"compatible with steam controller", "gamepad", "controller",
	"detección de mov. en mando",

	// audio
	"controles de volumen personalizados",
	"ajustes de sonido", "configuración de audio",
	"audio adicional de alta calidad",

	// accessibility
	"jugable sin eventos rápidos",
	"guardar en cualquier momento",
	"alternativas de color", "tamaño del texto ajustable",
	"opción solo ratón", "opción solo teclado", "opción solo táctil",
	"opciones de subtítulos", "subtítulos disponibles",
	"chat de voz convertido a texto", "chat de texto convertido a voz",
	"menús narrados",

	// platform features
	"steam workshop", "workshop",
	"tablas de clasificación de steam", "estadísticas",
	"contenido descargable",
	"con sist. antitrampas de valve",
	"steam timeline",
	"notificaciones de turnos de steam",
	"incluye el sdk de source",
	"coleccionables de steamvr",

	// remote play
	"remote play en tableta", "remote play together",
	"remote play en tv", "remote play en móvil",

	// hdr and vr
	"hdr disponible", "compatible con rv", "compatibilidad con rv",
	"solo para rv",

	// community
	"steam community", "comunidad steam",
}

// Lists is the on-disk form of the blocklists.
//
//	names:
//	  - dlc
//	tags:
//	  - steam cloud
type Lists struct {
	Names []string `yaml:"names" json:"names"`
	Tags  []string `yaml:"tags" json:"tags"`
}

// DefaultLists returns copies of the built-in blocklists.
func DefaultLists() Lists {
	return Lists{
		Names: append([]string(nil), DefaultNameBlocklist...),
		Tags:  append([]string(nil), DefaultTagBlocklist...),
	}
}

// LoadLists reads blocklists from a YAML file. A list the file leaves out
// keeps its default; an empty path returns the defaults.
func LoadLists(path string) (Lists, error) {
	lists := DefaultLists()
	if path == "" {
		return lists, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if stderrors.Is(err, os.ErrNotExist) {
			return Lists{}, errors.NewMissingInputError("filter list", path, err)
		}
		return Lists{}, errors.WrapIO("read", path, err)
	}

	var file Lists
	if err := yaml.Unmarshal(data, &file); err != nil {
		return Lists{}, errors.NewParseError("yaml", path, 0, err)
	}
	if file.Names != nil {
		lists.Names = file.Names
	}
	if file.Tags != nil {
		lists.Tags = file.Tags
	}
	return lists, nil
}
