package cyberhive

const Version = "v0.4.1"
