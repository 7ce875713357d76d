package main

import (
	"crypto/md5"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/h2non/filetype"
	pe "github.com/wanglei-coder/peedit"
)

var (
	filename         string
	output           string
	ignoreCert       bool
	removeResources  bool
	rebuildResources bool
	padding          int
)

func init() {
	flag.StringVar(&filename, "filename", "", "Please enter the file path")
	flag.StringVar(&output, "out", "", "write the regenerated image to this path")
	flag.BoolVar(&ignoreCert, "ignore-cert", false, "accept signed images and drop the signature")
	flag.BoolVar(&removeResources, "remove-resources", false, "remove the resource section before writing")
	flag.BoolVar(&rebuildResources, "rebuild-resources", false, "regenerate the resource directory before writing")
	flag.IntVar(&padding, "padding", 0, "zero bytes appended to the regenerated image")
	flag.Parse()
}

type Info struct {
	Format          string
	MachineType     uint16
	EntryPoint      uint32
	ImageBase       uint64
	CompilationTime uint32
	CheckSum        uint32
	RichHeaderHash  string
	Authentihash    string
	ExtraData       *ExtraData
	Sections        []*Section
	ResourceDetails []*ResourceDetail
}

type ExtraData struct {
	MD5      string
	FileType string
	Size     int
	Entropy  float64
}

type Section struct {
	Name           string
	MD5            string
	Flags          string
	RawSize        uint32
	VirtualAddress uint32
	VirtualSize    uint32
	Entropy        float64
}

type ResourceDetail struct {
	Type     string
	ID       string
	Language string
	Codepage uint32
	FileType string
	SHA256   string
	Entropy  float64
}

func getSections(f *pe.File) []*Section {
	sections := make([]*Section, 0, f.FileHeader().NumberOfSections())
	for _, s := range f.Sections() {
		var section Section
		section.Name = s.Name
		section.RawSize = s.SizeOfRawData
		section.VirtualAddress = s.VirtualAddress
		section.VirtualSize = s.VirtualSize
		section.Flags = s.Flags()
		section.MD5 = s.MD5()
		section.Entropy = s.Entropy()
		sections = append(sections, &section)
	}
	return sections
}

func getResourceDetails(r *pe.Resource) []*ResourceDetail {
	resourceDetails := make([]*ResourceDetail, 0, len(r.Entries))
	for _, e := range r.Entries {
		resourceDetails = append(resourceDetails, &ResourceDetail{
			Type:     pe.GetResourceTypeName(e.Type),
			ID:       e.ID.String(),
			Language: e.Lang.String(),
			Codepage: e.Codepage,
			SHA256:   fmt.Sprintf("%x", sha256.Sum256(e.Data)),
			Entropy:  CalculateEntropy(e.Data),
			FileType: GetFileType(e.Data),
		})
	}
	return resourceDetails
}

func getExtraData(f *pe.File) *ExtraData {
	data := f.ExtraData()
	if len(data) == 0 {
		return nil
	}
	sum := md5.Sum(data)
	return &ExtraData{
		MD5:      hex.EncodeToString(sum[:]),
		FileType: GetFileType(data),
		Size:     len(data),
		Entropy:  CalculateEntropy(data),
	}
}

func main() {
	f, err := pe.NewFile(filename, &pe.Options{IgnoreCert: ignoreCert})
	if err != nil {
		log.Fatal(err)
	}
	res, err := pe.ParseResource(f)
	if err != nil {
		log.Fatal(err)
	}

	info := Info{
		Format:          f.Kind().String(),
		CompilationTime: f.FileHeader().TimeDateStamp(),
		MachineType:     f.FileHeader().Machine(),
		EntryPoint:      f.OptionalHeader().AddressOfEntryPoint(),
		ImageBase:       f.ImageBase(),
		CheckSum:        f.OptionalHeader().CheckSum(),
		RichHeaderHash:  f.RichHeaderHash(),
		Authentihash:    hex.EncodeToString(f.Authentihash()),
		ExtraData:       getExtraData(f),
		Sections:        getSections(f),
		ResourceDetails: getResourceDetails(res),
	}

	data, _ := json.MarshalIndent(&info, "", "    ")
	fmt.Printf("%s\n", data)

	if output == "" {
		return
	}
	switch {
	case removeResources:
		if err := f.SetSectionByEntry(pe.ImageDirectoryEntryResource, nil); err != nil {
			log.Fatal(err)
		}
	case rebuildResources:
		if err := res.OutputResource(f, false, false); err != nil {
			log.Fatal(err)
		}
	}
	if err := os.WriteFile(output, f.Generate(padding), 0o644); err != nil {
		log.Fatal(err)
	}
}

func GetFileType(data []byte) string {
	kind, _ := filetype.Match(data)
	if kind == filetype.Unknown {
		return "Data"
	}
	return kind.MIME.Value
}

func CalculateEntropy(data []byte) float64 {
	var e pe.EntropyCalculator
	_, _ = e.Write(data)
	return e.Sum()
}
