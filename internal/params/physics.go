package params

// HIModel holds the neutral-hydrogen scattering switches.
type HIModel struct {
	Isotropic bool `toml:"isotropic"`
	Recoil    bool `toml:"recoil"`
}

// Dust holds the dust model. Albedo and GDust are replaced per band when
// a band list is given.
type Dust struct {
	Albedo float64 `toml:"albedo"`
	GDust  float64 `toml:"g_dust"`
	Model  string  `toml:"dust_model"`
}

// Gas holds the gas-composition parameters.
type Gas struct {
	FIon         float64 `toml:"f_ion"`
	Zref         float64 `toml:"zref"`
	GasOverwrite bool    `toml:"gas_overwrite"`
	Verbose      bool    `toml:"verbose"`
}

// Ramses controls how RAMSES outputs are read.
type Ramses struct {
	SelfShielding   bool `toml:"self_shielding"`
	RamsesRT        bool `toml:"ramses_rt"`
	Verbose         bool `toml:"verbose"`
	UseInitialMass  bool `toml:"use_initial_mass"`
	Cosmo           bool `toml:"cosmo"`
	UseProperTime   bool `toml:"use_proper_time"`
	ReadRTVariables bool `toml:"read_rt_variables"`
}

// DomDump holds the extra CreateDomDump options.
type DomDump struct {
	ReadingMethod string `toml:"reading_method"`
	Verbose       bool   `toml:"verbose"`
}

// Photometry locates the SED tables used to build photometric tables.
type Photometry struct {
	SEDDir          string  `toml:"sed_dir"`
	SEDModel        string  `toml:"sed_model"`
	PhotTableDir    string  `toml:"phot_table_dir"`
	Method          string  `toml:"method"`
	Lambda0Angstrom float64 `toml:"lambda0_angstrom"` // used when no band is given
}

// Physics is the run-wide parameter set shared by every halo. It is built
// once and read by value; per-band overrides never write back into it.
type Physics struct {
	HI         HIModel    `toml:"hi"`
	Dust       Dust       `toml:"dust"`
	Gas        Gas        `toml:"gas"`
	Ramses     Ramses     `toml:"ramses"`
	DomDump    DomDump    `toml:"dom_dump"`
	Photometry Photometry `toml:"photometry"`
}

// DefaultPhysics returns the SPHINX UV-continuum setup: SMC dust, bpass100
// SEDs, monochromatic photometry at 1500 A.
func DefaultPhysics() Physics {
	return Physics{
		HI:   HIModel{Isotropic: false, Recoil: true},
		Dust: Dust{Albedo: 0.32, GDust: 0.73, Model: "SMC"},
		Gas:  Gas{FIon: 0.01, Zref: 0.005, GasOverwrite: false, Verbose: true},
		Ramses: Ramses{
			SelfShielding:   false,
			RamsesRT:        true,
			Verbose:         false,
			UseInitialMass:  true,
			Cosmo:           true,
			UseProperTime:   true,
			ReadRTVariables: false,
		},
		DomDump: DomDump{ReadingMethod: "hilbert", Verbose: true},
		Photometry: Photometry{
			SEDModel:        "bpass100",
			Method:          "Monochromatic",
			Lambda0Angstrom: 1500,
		},
	}
}

// Group names used as parameter-file sections.
const (
	GroupComputationalDomain   = "ComputationalDomain"
	GroupDomainDecomposition   = "DomainDecomposition"
	GroupStellarEmissionDomain = "StellarEmissionDomain"
	GroupPhotometricTable      = "PhotometricTable"
	GroupGasComposition        = "gas_composition"
	GroupDust                  = "dust"
	GroupHI                    = "HI"
	GroupRamses                = "ramses"
	GroupDomDump               = "CreateDomDump"
)

func (p Physics) hiGroup() Group {
	return NewGroup(GroupHI,
		"isotropic", Bool(p.HI.Isotropic),
		"recoil", Bool(p.HI.Recoil),
	)
}

func (p Physics) gasGroup() Group {
	return NewGroup(GroupGasComposition,
		"f_ion", Float(p.Gas.FIon),
		"Zref", Float(p.Gas.Zref),
		"gas_overwrite", Bool(p.Gas.GasOverwrite),
		"verbose", Bool(p.Gas.Verbose),
	)
}

func (p Physics) ramsesGroup() Group {
	r := p.Ramses
	return NewGroup(GroupRamses,
		"self_shielding", Bool(r.SelfShielding),
		"ramses_rt", Bool(r.RamsesRT),
		"verbose", Bool(r.Verbose),
		"use_initial_mass", Bool(r.UseInitialMass),
		"cosmo", Bool(r.Cosmo),
		"use_proper_time", Bool(r.UseProperTime),
		"read_rt_variables", Bool(r.ReadRTVariables),
	)
}

func (p Physics) domDumpGroup() Group {
	return NewGroup(GroupDomDump,
		"reading_method", p.DomDump.ReadingMethod,
		"verbose", Bool(p.DomDump.Verbose),
	)
}
