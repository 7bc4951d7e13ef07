package model

type StorefrontClosed struct {
	Sessions      int
	CartsReleased int
}

func (e StorefrontClosed) Type() string { return "StorefrontClosed" }

type StorefrontOpened struct {
	Sessions int
}

func (e StorefrontOpened) Type() string { return "StorefrontOpened" }

type AdminAdded struct {
	Identity string
}

func (e AdminAdded) Type() string { return "AdminAdded" }

type AdminRemoved struct {
	Identity string
}

func (e AdminRemoved) Type() string { return "AdminRemoved" }
