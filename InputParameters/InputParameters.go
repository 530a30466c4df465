package InputParameters

import (
	"fmt"

	"github.com/ghodss/yaml"
)

// Parameters obtained from the YAML input file
type ParametersMLSDC struct {
	Title          string  `yaml:"Title"`
	NCells         int     `yaml:"NCells"`
	MaxLevel       int     `yaml:"MaxLevel"`
	RefRatio       int     `yaml:"RefRatio"`
	BlockingFactor []int   `yaml:"BlockingFactor"`
	RegridInt      int     `yaml:"RegridInt"`
	Periodic       bool    `yaml:"Periodic"`
	CFL            float64 `yaml:"CFL"`
	FinalTime      float64 `yaml:"FinalTime"`
	Length         float64 `yaml:"Length"`
	AdvectionSpeed float64 `yaml:"AdvectionSpeed"`
	Diffusivity    float64 `yaml:"Diffusivity"`
	GradTol        float64 `yaml:"GradTol"`
	InitType       string  `yaml:"InitType"`
}

func (ip *ParametersMLSDC) Parse(data []byte) error {
	if err := yaml.Unmarshal(data, ip); err != nil {
		return err
	}
	if ip.NCells == 0 {
		ip.NCells = 64
	}
	if ip.RefRatio == 0 {
		ip.RefRatio = 2
	}
	if len(ip.BlockingFactor) == 0 {
		ip.BlockingFactor = []int{4}
	}
	if ip.CFL == 0 {
		ip.CFL = 0.5
	}
	if ip.Length == 0 {
		ip.Length = 1
	}
	return nil
}

func (ip *ParametersMLSDC) Print() {
	fmt.Printf("\"%s\"\t\t= Title\n", ip.Title)
	fmt.Printf("%8.5f\t\t= CFL\n", ip.CFL)
	fmt.Printf("%8.5f\t\t= FinalTime\n", ip.FinalTime)
	fmt.Printf("[%d]\t\t\t= NCells\n", ip.NCells)
	fmt.Printf("[%d]\t\t\t= MaxLevel\n", ip.MaxLevel)
	fmt.Printf("[%d]\t\t\t= RefRatio\n", ip.RefRatio)
	fmt.Printf("%v\t\t\t= BlockingFactor\n", ip.BlockingFactor)
	fmt.Printf("[%d]\t\t\t= RegridInt\n", ip.RegridInt)
	fmt.Printf("[%v]\t\t\t= Periodic\n", ip.Periodic)
	fmt.Printf("[%s]\t\t= InitType\n", ip.InitType)
	fmt.Printf("%8.5f\t\t= AdvectionSpeed\n", ip.AdvectionSpeed)
	fmt.Printf("%8.5f\t\t= Diffusivity\n", ip.Diffusivity)
}
