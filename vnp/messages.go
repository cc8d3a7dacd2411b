// Copyright 2025 StrongDM Inc
// SPDX-License-Identifier: Apache-2.0

// Package vnp implements the VOS Network Protocol: the length-framed,
// JSON-tagged message protocol used between Orbit peers.
package vnp

import "github.com/passadis/orbit/vos"

// Type discriminates the tagged message set. Names are case-sensitive on
// the wire.
type Type string

const (
	TypeAuthenticate        Type = "Authenticate"
	TypeAuthResult          Type = "AuthResult"
	TypeListRepositories    Type = "ListRepositories"
	TypeRepositoryList      Type = "RepositoryList"
	TypeSelectRepository    Type = "SelectRepository"
	TypeCreateRepository    Type = "CreateRepository"
	TypeRepositorySelected  Type = "RepositorySelected"
	TypeHave                Type = "Have"
	TypeWant                Type = "Want"
	TypePush                Type = "Push"
	TypePull                Type = "Pull"
	TypeGet                 Type = "Get"
	TypeGetTree             Type = "GetTree"
	TypeGetFile             Type = "GetFile"
	TypeGetCompleteGraph    Type = "GetCompleteGraph"
	TypeSendObject          Type = "SendObject"
	TypeObjectHeader        Type = "ObjectHeader"
	TypeObjectData          Type = "ObjectData"
	TypeReady               Type = "Ready"
	TypeOk                  Type = "Ok"
	TypeError               Type = "Error"
)

// Message is the single Go representation of every tagged VNP message.
// Only the fields relevant to Type are populated; a flattened struct with
// omitempty fields keeps one frame codec for the whole message set.
type Message struct {
	Type Type `json:"type"`

	Token      string    `json:"token,omitempty"`
	Success    bool      `json:"success,omitempty"`
	Names      []string  `json:"names,omitempty"`
	Name       string    `json:"name,omitempty"`
	OIDs       []vos.OID `json:"oids,omitempty"`
	OID        vos.OID   `json:"oid,omitempty"`
	ObjectType string    `json:"object_type,omitempty"`
	Size       int64     `json:"size,omitempty"`
	Data       []byte    `json:"data,omitempty"`
	ErrMessage string    `json:"message,omitempty"`
}

func Authenticate(token string) Message { return Message{Type: TypeAuthenticate, Token: token} }

func AuthResult(success bool, message string) Message {
	return Message{Type: TypeAuthResult, Success: success, ErrMessage: message}
}

func ListRepositories() Message { return Message{Type: TypeListRepositories} }

func RepositoryList(names []string) Message {
	return Message{Type: TypeRepositoryList, Names: names}
}

func SelectRepository(name string) Message { return Message{Type: TypeSelectRepository, Name: name} }

func CreateRepository(name string) Message { return Message{Type: TypeCreateRepository, Name: name} }

func RepositorySelected(name string) Message {
	return Message{Type: TypeRepositorySelected, Name: name}
}

func Have(oids []vos.OID) Message { return Message{Type: TypeHave, OIDs: oids} }

func Want(oids []vos.OID) Message { return Message{Type: TypeWant, OIDs: oids} }

func Push(oids []vos.OID) Message { return Message{Type: TypePush, OIDs: oids} }

func Pull(oids []vos.OID) Message { return Message{Type: TypePull, OIDs: oids} }

func Get(oid vos.OID) Message { return Message{Type: TypeGet, OID: oid} }

func GetTree(oid vos.OID) Message { return Message{Type: TypeGetTree, OID: oid} }

func GetFile(oid vos.OID) Message { return Message{Type: TypeGetFile, OID: oid} }

func GetCompleteGraph(oid vos.OID) Message { return Message{Type: TypeGetCompleteGraph, OID: oid} }

func SendObject(oid vos.OID) Message { return Message{Type: TypeSendObject, OID: oid} }

func ObjectHeader(id vos.OID, objectType string, size int64) Message {
	return Message{Type: TypeObjectHeader, OID: id, ObjectType: objectType, Size: size}
}

func ObjectData(data []byte) Message { return Message{Type: TypeObjectData, Data: data} }

func Ready() Message { return Message{Type: TypeReady} }

func Ok() Message { return Message{Type: TypeOk} }

func Error(message string) Message { return Message{Type: TypeError, ErrMessage: message} }
