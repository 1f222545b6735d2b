package cli

var NewAppForTest = newApp
