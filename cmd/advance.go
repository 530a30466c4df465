/*
Copyright © 2020 NAME HERE <EMAIL ADDRESS>

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/
package cmd

import (
	"fmt"
	"io/ioutil"
	"math"
	"os"

	"github.com/pkg/profile"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/notargets/mlsdc/InputParameters"
	"github.com/notargets/mlsdc/amr"
	"github.com/notargets/mlsdc/mlsdc"
	"github.com/notargets/mlsdc/model_problems"
)

type ModelRun struct {
	ICFile  string
	Verbose int
	Profile bool
}

// advanceCmd represents the advance command
var advanceCmd = &cobra.Command{
	Use:   "advance",
	Short: "Advance the advection-diffusion model problem to its final time",
	Long:  `Advance the advection-diffusion model problem to its final time`,
	Run: func(cmd *cobra.Command, args []string) {
		var (
			err error
			mr  = &ModelRun{}
		)
		if mr.ICFile, err = cmd.Flags().GetString("inputConditionsFile"); err != nil {
			panic(err)
		}
		mr.Verbose, _ = cmd.Flags().GetInt("verbose")
		mr.Profile, _ = cmd.Flags().GetBool("profile")
		if mr.Profile {
			defer profile.Start().Stop()
		}
		ip := processInput(mr)
		RunModel(mr, ip)
	},
}

func init() {
	rootCmd.AddCommand(advanceCmd)
	advanceCmd.Flags().StringP("inputConditionsFile", "I", "", "YAML file describing the run")
	advanceCmd.Flags().IntP("verbose", "v", 0, "verbosity level, 0 disables diagnostics")
	advanceCmd.Flags().Bool("profile", false, "write a CPU profile of the run")
}

func processInput(mr *ModelRun) (ip *InputParameters.ParametersMLSDC) {
	ip = &InputParameters.ParametersMLSDC{}
	if len(mr.ICFile) == 0 {
		fmt.Println("no input conditions file given, using defaults")
		_ = ip.Parse([]byte("{}"))
		ip.Title = "defaults"
		ip.FinalTime = 0.5
		ip.AdvectionSpeed = 1
		ip.Diffusivity = 0.01
		ip.Periodic = true
		ip.InitType = "sine"
		return
	}
	data, err := ioutil.ReadFile(mr.ICFile)
	if err != nil {
		fmt.Printf("unable to read input conditions file %q: %v\n", mr.ICFile, err)
		os.Exit(1)
	}
	if err = ip.Parse(data); err != nil {
		fmt.Printf("unable to parse input conditions file %q: %v\n", mr.ICFile, err)
		os.Exit(1)
	}
	ip.Print()
	return
}

func RunModel(mr *ModelRun, ip *InputParameters.ParametersMLSDC) {
	var (
		op = model_problems.NewAdvectionDiffusion(ip.AdvectionSpeed, ip.Diffusivity,
			ip.CFL, ip.Length, model_problems.NewInitType(ip.InitType))
	)
	if ip.GradTol > 0 {
		op.GradTol = ip.GradTol
	}
	h := amr.NewHierarchy(ip.NCells, ip.MaxLevel, ip.RefRatio,
		ip.BlockingFactor, ip.RegridInt, ip.Periodic)
	h.Verbose = mr.Verbose
	h.AddState(op.StateName, 1, 2, []amr.BCType{amr.BCExtrap})
	h.Tagger = op.TagCells
	h.DtEstimator = op.EstimateDt
	h.InitFromScratch(0, op.InitData)

	c := mlsdc.NewController(h, op, mlsdc.Config{
		MaxIters:  viper.GetInt("mlsdc.max_iters"),
		MaxTrefs:  viper.GetInt("mlsdc.max_trefs"),
		BaseNodes: viper.GetInt("mlsdc.base_nodes"),
		TimeRatio: viper.GetInt("mlsdc.time_ratio"),
		StateName: op.StateName,
		Verbose:   mr.Verbose,
	})

	var (
		time float64
		step int
	)
	for time < ip.FinalTime-1e-12 {
		h.ComputeNewDt(time, ip.FinalTime)
		c.Step(0, time, step, 1, ip.FinalTime)
		h.CycleStates()
		time += h.DtLevel[0]
		step++
		if mr.Verbose > 0 {
			fmt.Printf("step %d complete, t = %g\n", step, time)
		}
	}
	var norm float64
	sd := h.GetLevel(0).State(op.StateName)
	norm = sd.Cur.Norm2() / math.Sqrt(float64(sd.Cur.CountCells()))
	fmt.Printf("finished %d steps, t = %g, base level RMS = %g\n", step, time, norm)
}
