package preparation

// ligandGroups are the fixed chemical-element partitions used to batch
// grid-map generation, eleven groups covering every AutoDock atom type.
// One GPF is generated per group, in this order; index and order are
// part of the grid filenames, so the list must never be reordered.
var ligandGroups = [...]string{
	"C,A,N,NA,NS,OA,OS,SA,S,H,HD",
	"HS,P,Br,BR,Ca,CA,Cl,CL,F,Fe,FE",
	"I,Mg,MG,Mn,MN,Zn,ZN,He,Li,Be",
	"B,Ne,Na,Al,Si,K,Sc,Ti,V,Co",
	"Ni,Cu,Ga,Ge,As,Se,Kr,Rb,Sr,Y",
	"Zr,Nb,Cr,Tc,Ru,Rh,Pd,Ag,Cd,In",
	"Sn,Sb,Te,Xe,Cs,Ba,La,Ce,Pr,Nd",
	"Pm,Sm,Eu,Gd,Tb,Dy,Ho,Er,Tm,Yb",
	"Lu,Hf,Ta,W,Re,Os,Ir,Pt,Au,Hg",
	"Tl,Pb,Bi,Po,At,Rn,Fr,Ra,Ac,Th",
	"Pa,U,Np,Pu,Am,Cm,Bk,Cf,E,Fm",
}
