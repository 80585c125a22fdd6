// Package model defines the contract between model-backed agents and
// language model providers. The engine treats a model call as an abstract
// capability: given an instruction and a conversation, return a completion
// or an error. Provider adapters live in the subpackages model/openai and
// model/anthropic.
package model
