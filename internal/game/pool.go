package game

import (
	"fmt"
	"os"
	"path"
	"path/filepath"
	"slices"
	"strings"
)

// URL prefixes of the built-in labeled images.
const (
	RealImagesPath = "/game-images/real/"
	FakeImagesPath = "/game-images/fake/"
)

// Samples from the 140k Real and Fake Faces dataset.
var (
	realImageNames = []string{
		"00168.jpg", "01425.jpg", "02462.jpg", "03553.jpg", "08721.jpg",
		"09569.jpg", "10549.jpg", "11495.jpg", "12390.jpg", "13510.jpg",
		"14212.jpg", "16131.jpg", "16328.jpg", "16344.jpg", "19288.jpg",
		"22229.jpg", "25854.jpg", "26247.jpg", "27254.jpg", "27833.jpg",
		"31964.jpg", "32089.jpg", "32246.jpg", "33969.jpg", "34237.jpg",
		"34880.jpg", "39067.jpg", "40260.jpg", "40623.jpg", "41215.jpg",
		"41938.jpg", "43353.jpg", "46306.jpg", "49433.jpg", "50629.jpg",
		"52198.jpg", "52971.jpg", "53697.jpg", "53754.jpg", "54187.jpg",
		"57012.jpg", "57045.jpg", "61453.jpg", "61945.jpg", "63436.jpg",
		"63793.jpg", "64135.jpg", "67540.jpg", "69252.jpg", "69335.jpg",
	}
	fakeImageNames = []string{
		"0TFRQPXR1X.jpg", "1NFGLXUFYS.jpg", "2TOCMQKPQM.jpg", "4RQPF1PWZW.jpg", "4W11OUXXJQ.jpg",
		"584TLVNMB5.jpg", "59E68NDUTY.jpg", "5GXE1SSNM0.jpg", "62PBAUAJFG.jpg", "6AARXSFB1D.jpg",
		"7ZYC2UHV1R.jpg", "977VOO6HS3.jpg", "AXCMF459N5.jpg", "BOP21MV1KF.jpg", "DZGRZ5WU1D.jpg",
		"FGNSN769OA.jpg", "FLZVRNSDZ9.jpg", "HWPHD8TIN5.jpg", "ISV6FVY6CY.jpg", "IVUJ2Y82RQ.jpg",
		"JZHYA672BI.jpg", "KNSACM68SD.jpg", "KRWUG1T9ZN.jpg", "LG5LG2XB5H.jpg", "LRZUHETR9J.jpg",
		"NO5NYDZOKD.jpg", "OUOMPZ1AZF.jpg", "OZ3LUW3MBG.jpg", "P3LVJLBQXW.jpg", "PE592GEU4P.jpg",
		"PY6ZWSWD0H.jpg", "QK9VLCVIBE.jpg", "RFDE8JGZ0P.jpg", "SDC1M1UT7J.jpg", "SREXRD97AY.jpg",
		"SYU7G3BAM7.jpg", "TDJE6TXNN8.jpg", "TUA3HESX88.jpg", "UVA5KOI5OG.jpg", "V21P2X29OG.jpg",
		"WRGISUG7OV.jpg", "WWLKGXCZEX.jpg", "X7WSSVM2DL.jpg", "XNLDCFA367.jpg", "YF2DOWHO4G.jpg",
		"YLHLUR6QNU.jpg", "Z4V1SQBEOG.jpg", "Z8UA13AG4N.jpg", "Z9X8WZU3KS.jpg", "ZIPN2T1YFA.jpg",
	}
)

var imageExtensions = []string{".jpg", ".jpeg", ".png", ".gif", ".webp"}

// Item is one labeled image.
type Item struct {
	URL  string `json:"url"`
	IsAI bool   `json:"is_ai"`
}

// Pool is an immutable set of labeled images, real ones first.
type Pool struct {
	items     []Item
	realCount int
}

// NewPool builds a pool from the URLs of real photos and AI-generated images.
func NewPool(realURLs, fakeURLs []string) *Pool {
	items := make([]Item, 0, len(realURLs)+len(fakeURLs))
	for _, u := range realURLs {
		items = append(items, Item{URL: u, IsAI: false})
	}
	for _, u := range fakeURLs {
		items = append(items, Item{URL: u, IsAI: true})
	}
	return &Pool{items: items, realCount: len(realURLs)}
}

// DefaultPool returns the built-in 50 real and 50 AI-generated faces.
func DefaultPool() *Pool {
	return NewPool(prefixed(RealImagesPath, realImageNames), prefixed(FakeImagesPath, fakeImageNames))
}

// LoadPool scans dir/real and dir/fake for images and serves them under
// urlPrefix/real/ and urlPrefix/fake/.
func LoadPool(dir, urlPrefix string) (*Pool, error) {
	realNames, err := listImages(filepath.Join(dir, "real"))
	if err != nil {
		return nil, err
	}
	fakeNames, err := listImages(filepath.Join(dir, "fake"))
	if err != nil {
		return nil, err
	}
	if len(realNames)+len(fakeNames) == 0 {
		return nil, fmt.Errorf("%s: %w", dir, ErrEmptyPool)
	}

	base := "/" + strings.Trim(urlPrefix, "/")
	return NewPool(
		prefixed(path.Join(base, "real")+"/", realNames),
		prefixed(path.Join(base, "fake")+"/", fakeNames),
	), nil
}

// Len returns the number of images in the pool.
func (p *Pool) Len() int {
	return len(p.items)
}

// At returns the i-th image of the combined pool.
func (p *Pool) At(i int) Item {
	return p.items[i]
}

// Real returns the real photos.
func (p *Pool) Real() []Item {
	return slices.Clone(p.items[:p.realCount])
}

// Fake returns the AI-generated images.
func (p *Pool) Fake() []Item {
	return slices.Clone(p.items[p.realCount:])
}

// Contains reports whether item is part of the pool.
func (p *Pool) Contains(item Item) bool {
	return slices.Contains(p.items, item)
}

func listImages(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read %s: %w", dir, err)
	}

	var names []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if slices.Contains(imageExtensions, strings.ToLower(filepath.Ext(entry.Name()))) {
			names = append(names, entry.Name())
		}
	}
	slices.Sort(names)
	return names, nil
}

func prefixed(prefix string, names []string) []string {
	out := make([]string, len(names))
	for i, name := range names {
		out[i] = prefix + name
	}
	return out
}
