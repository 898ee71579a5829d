package main

// General API documentation for swaggo. Regenerate with `swag init -g cmd/aiconfig/docs.go -o docs`.
//
// @title           aiconfig API
// @version         1.0
// @description     HTTP API for running the prompts of one aiconfig document.
//
// @contact.name   aiconfig maintainers
//
// @license.name   MIT
// @license.url    https://opensource.org/licenses/MIT
//
// @BasePath  /
//
// @schemes http
